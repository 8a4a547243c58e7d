// Command gensynth writes synthetic raw parameter tables and an area grid in
// the layout read by seaweed-cluster, for local runs without model output.
//
// Usage:
//
//	go run ./cmd/gensynth -out data/raw -area data/geospatial_information/grid/area_grid.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/seaweed-cluster/internal/adapter/csvsource"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

type options struct {
	out       string
	area      string
	scenarios []string
	cells     int
	months    int
	pre       int
	seed      uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	var scenarios string
	flag.StringVar(&o.out, "out", filepath.Join("data", "raw"), "output directory for parameter tables")
	flag.StringVar(&o.area, "area", filepath.Join("data", "geospatial_information", "grid", "area_grid.csv"), "output path for the area grid")
	flag.StringVar(&scenarios, "scenarios", "150tg,control", "comma-separated scenario names")
	flag.IntVar(&o.cells, "cells", 200, "grid cells per gridded scope")
	flag.IntVar(&o.months, "months", 48, "months after the event")
	flag.IntVar(&o.pre, "pre", 3, "months before the event")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed")
	flag.Parse()

	for _, s := range strings.Split(scenarios, ",") {
		if s = strings.TrimSpace(s); s != "" {
			o.scenarios = append(o.scenarios, s)
		}
	}
	if len(o.scenarios) == 0 || o.cells <= 0 || o.months <= 0 || o.pre < 0 {
		flag.Usage()
		return fmt.Errorf("need at least one scenario and positive -cells, -months")
	}

	cells := grid(o.cells)
	if err := writeArea(o.area, cells); err != nil {
		return err
	}
	months := make([]int, 0, o.pre+o.months)
	for m := -o.pre; m < o.months; m++ {
		months = append(months, m)
	}

	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	for si, scenario := range o.scenarios {
		if err := os.MkdirAll(filepath.Join(o.out, scenario), 0o755); err != nil {
			return err
		}
		// Larger soot injections depress growth further.
		severity := 1 - 0.4*float64(si)/float64(max(len(o.scenarios)-1, 1))
		for _, scope := range domain.DefaultScopes() {
			keys := cells
			if scope.RegionKeyed() {
				keys = make([]domain.CellKey, len(scope.RegionIDs))
				for i, id := range scope.RegionIDs {
					keys[i] = domain.RegionKey(id)
				}
			}
			for _, p := range domain.Parameters {
				t := synthesize(rng, p, keys, months, severity)
				if err := writeTable(csvsource.Path(o.out, scenario, scope.Name, p), t); err != nil {
					return err
				}
			}
		}
		log.Printf("scenario %s written (%d cells, %d months)", scenario, len(cells), len(months))
	}
	return nil
}

// grid spreads n ocean cells over a regular 1 degree lattice between 60S and 60N.
func grid(n int) []domain.CellKey {
	keys := make([]domain.CellKey, 0, n)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	for i := range n {
		lat := -60 + 120*float64(i/cols)/float64(cols)
		lon := 360 * float64(i%cols) / float64(cols)
		keys = append(keys, domain.NewCellKey(lat, lon))
	}
	return keys
}

// synthesize builds a seasonal series per cell, damped after the event by
// severity and recovering linearly. Growth rates are squashed to [0, 0.1].
func synthesize(rng *rand.Rand, p domain.Parameter, keys []domain.CellKey, months []int, severity float64) domain.Table {
	t := domain.Table{Parameter: p, Months: months}
	for _, k := range keys {
		phase := rng.Float64() * 2 * math.Pi
		amp := 0.1 + 0.2*math.Abs(k.Lat)/60
		base := 0.5 + 0.4*rng.Float64()
		row := make([]float64, len(months))
		for j, m := range months {
			season := amp * math.Sin(2*math.Pi*float64(m)/12+phase)
			v := base + season
			if m >= 0 {
				v *= severity + (1-severity)*math.Min(float64(m)/float64(len(months)), 1)
			}
			if p == domain.GrowthRate {
				v = math.Max(v, 0) * math.Max(v, 0) / 10
			}
			row[j] = math.Max(0, math.Min(v, 1))
		}
		t.Keys = append(t.Keys, k)
		t.Values = append(t.Values, row)
	}
	return t
}

func writeTable(path string, t domain.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvsource.WriteTable(f, t); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeArea(path string, cells []domain.CellKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("TLAT,TLONG,TAREA\n")
	for _, k := range cells {
		// Cell area shrinks with the cosine of latitude.
		area := 1.2e10 * math.Cos(k.Lat*math.Pi/180)
		fmt.Fprintf(&b, "%g,%g,%g\n", k.Lat, k.Lon, area)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
