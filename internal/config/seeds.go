package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Seed list file names under {seed_dir}/{target}/.
const (
	TypeSeedFile      = "type"
	AggregateSeedFile = "agg"
	FunctionSeedFile  = "func"
	PredicateSeedFile = "pred"
)

// Seeds holds the static per-target generation inputs. It is read-only
// after LoadSeeds returns.
type Seeds struct {
	Types      []string
	Aggregates []string
	Functions  []string
	Predicates []string
}

// LoadSeeds reads the four seed lists for target.
func LoadSeeds(dir string, target string) (Seeds, error) {
	base := filepath.Join(dir, target)
	var seeds Seeds
	lists := []struct {
		name string
		dst  *[]string
	}{
		{TypeSeedFile, &seeds.Types},
		{AggregateSeedFile, &seeds.Aggregates},
		{FunctionSeedFile, &seeds.Functions},
		{PredicateSeedFile, &seeds.Predicates},
	}
	for _, l := range lists {
		items, err := ReadList(filepath.Join(base, l.name))
		if err != nil {
			return Seeds{}, err
		}
		*l.dst = items
	}
	if len(seeds.Types) == 0 {
		return Seeds{}, errors.Errorf("seed list %s is empty", filepath.Join(base, TypeSeedFile))
	}
	return seeds, nil
}

// ReadList returns the trimmed non-empty lines of a file.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed list")
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}
	return out, nil
}
