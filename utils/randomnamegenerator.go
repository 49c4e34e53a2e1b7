package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

type RandomNameGenerator map[string]struct{}

// RandomName returns silly names that were not returned before by this generator.
func (rng *RandomNameGenerator) RandomName() string {
	if *rng == nil {
		*rng = make(map[string]struct{})
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := (*rng)[name]; !exists {
			(*rng)[name] = struct{}{}
			return name
		}
	}
}

// SeedNames makes generated names reproducible.
func SeedNames(seed int64) {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
}
