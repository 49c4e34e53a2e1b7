package liveedit

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/hello_stage/xform"
)

const debounce = 100 * time.Millisecond

// Watcher reports writes to a single file. The parent directory is watched
// so editors replacing the file by rename are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	file    string
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(file string) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %q", filepath.Dir(abs))
	}

	w := &Watcher{
		watcher: fw,
		file:    abs,
		Events:  make(chan string, 8),
		Errors:  make(chan error, 8),
		closeCh: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	// a burst of writes is reported once, debounce after its last write
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-w.closeCh:
			return
		case <-fire:
			fire = nil
			select {
			case w.Events <- w.file:
			case <-w.closeCh:
				return
			}
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != w.file {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		}
	}
}

// RequestFile is the yaml or json form of a transform request.
// Missing fields keep their defaults.
type RequestFile struct {
	Translate []float64 `yaml:"translate" json:"translate"`
	Rotate    []float64 `yaml:"rotate" json:"rotate"`
	Order     []int     `yaml:"order" json:"order"`
	Scale     []float64 `yaml:"scale" json:"scale"`
	Time      *float64  `yaml:"time" json:"time"`
}

func vec3(name string, v []float64, dst *mgl64.Vec3) error {
	if v == nil {
		return nil
	}
	if len(v) != 3 {
		return errors.Errorf("%s needs 3 components, got %d", name, len(v))
	}
	copy(dst[:], v)
	return nil
}

func (f RequestFile) Request() (xform.Request, error) {
	req := xform.NewRequest()
	if err := vec3("translate", f.Translate, &req.Translation); err != nil {
		return req, err
	}
	if err := vec3("rotate", f.Rotate, &req.Rotation); err != nil {
		return req, err
	}
	if err := vec3("scale", f.Scale, &req.Scale); err != nil {
		return req, err
	}
	if f.Order != nil {
		if len(f.Order) != 3 {
			return req, errors.Errorf("order needs 3 axes, got %d", len(f.Order))
		}
		copy(req.RotationOrder[:], f.Order)
		if !req.RotationOrder.InRange() {
			return req, errors.Errorf("invalid rotation order %v", f.Order)
		}
	}
	if f.Time != nil {
		req.Time = xform.At(*f.Time)
	}
	return req, nil
}

func LoadRequest(file string) (xform.Request, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return xform.Request{}, err
	}
	var f RequestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return xform.Request{}, errors.Wrapf(err, "failed to parse %q", file)
	}
	req, err := f.Request()
	return req, errors.Wrapf(err, "%q", file)
}

// Watch applies the request file every time it changes until ctx is done
// or the watcher is closed. Bad request files are logged and skipped.
func (e *Editor) Watch(ctx context.Context, w *Watcher) error {
	e.Log.Infof("Watching %s for transform requests", w.file)
	for {
		select {
		case <-ctx.Done():
			return nil
		case file, ok := <-w.Events:
			if !ok {
				return nil
			}
			req, err := LoadRequest(file)
			if err != nil {
				e.Log.WithError(err).Warn("Skipping request")
				continue
			}
			if err := e.Apply(req); err != nil {
				return err
			}
			e.Log.Infof("Applied %s", file)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.Log.WithError(err).Warn("Watch error")
		}
	}
}
