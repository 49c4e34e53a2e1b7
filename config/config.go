// Package config holds the command line settings, optionally preloaded from
// a yaml file.
package config

import (
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/hello_stage/utils"
)

type Config struct {
	// Path is the folder receiving a new stage.
	Path string `yaml:"path"`
	// Existing opens this stage file instead of creating one.
	Existing string `yaml:"existing"`
	Live     bool   `yaml:"live"`
	Verbose  bool   `yaml:"verbose"`
	// Addr starts the web server when set.
	Addr string `yaml:"addr"`
	// Watch applies the transform request file on every change.
	Watch string `yaml:"watch"`
	User  string `yaml:"user"`
}

var names utils.RandomNameGenerator

func Default() Config {
	return Config{
		Path: ".",
		User: names.RandomName(),
	}
}

// LiveEdit reports whether keyboard editing runs. Opening an existing stage
// always edits it.
func (c *Config) LiveEdit() bool {
	return c.Live || c.Existing != ""
}

// Load reads a yaml config file over the values already in c.
func (c *Config) Load(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "Cannot read config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "Unmarshaling error in %q", file)
	}
	return nil
}

func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Path, "p", c.Path, "Destination folder of the new stage")
	fs.StringVar(&c.Path, "path", c.Path, "Destination folder of the new stage")
	fs.StringVar(&c.Existing, "e", c.Existing, "Open an existing stage file instead of creating one")
	fs.StringVar(&c.Existing, "existing", c.Existing, "Open an existing stage file instead of creating one")
	fs.BoolVar(&c.Live, "l", c.Live, "Live edit the box from the keyboard")
	fs.BoolVar(&c.Live, "live", c.Live, "Live edit the box from the keyboard")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "Debug logging")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Debug logging")
	fs.StringVar(&c.Addr, "i", c.Addr, "Address of web server, disabled when empty")
	fs.StringVar(&c.Watch, "watch", c.Watch, "Transform request file applied on every change")
	fs.StringVar(&c.User, "user", c.User, "User name")
}

// Parse builds the config from defaults, the file named by -config and the
// remaining flags, in that order of precedence.
func Parse(name string, args []string) (*Config, error) {
	var file string
	scan := flag.NewFlagSet(name, flag.ContinueOnError)
	scan.SetOutput(io.Discard)
	scratch := Default()
	scratch.RegisterFlags(scan)
	scan.StringVar(&file, "config", "", "")
	// errors are reported by the second pass
	_ = scan.Parse(args)

	cfg := Default()
	if file != "" {
		if err := cfg.Load(file); err != nil {
			return nil, err
		}
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	fs.String("config", file, "Yaml config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, errors.Errorf("unexpected arguments %v", fs.Args())
	}
	return &cfg, nil
}
