package qnetsim

// config.go holds the experiment configuration: the arrival and service
// rates, the routing branches, and the run-length parameters.  Configs
// serialize to yaml or json, selected by file extension

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// An ExperimentConfig describes one simulation experiment.  Validation
// happens once, at engine construction; the running engine never
// re-checks these values
type ExperimentConfig struct {
	// Name identifies the experiment, and seeds the default rng stream
	Name string `json:"name" yaml:"name"`

	// SourceRate is the rate of the external Poisson arrival process
	SourceRate float64 `json:"sourcerate" yaml:"sourcerate"`

	// SourceStation receives the external arrivals
	SourceStation int `json:"sourcestation" yaml:"sourcestation"`

	// ServiceRates maps each station to its exponential service rate
	ServiceRates map[int]float64 `json:"servicerates" yaml:"servicerates"`

	// Routing maps each station to its outgoing branches
	Routing map[int][]Branch `json:"routing" yaml:"routing"`

	// WarmupCustomers is the number of exits discarded before statistics
	// collection begins.  Zero disables the warm-up period
	WarmupCustomers int `json:"warmupcustomers" yaml:"warmupcustomers"`

	// TargetCompleted is the number of post-warm-up exits after which
	// the run is finished
	TargetCompleted int `json:"targetcompleted" yaml:"targetcompleted"`
}

// DefaultExperimentConfig returns the four-station open network the
// simulator was built around: external rate 4 into station 1, branching
// 1->2 (0.4), 1->3 (0.6), 2->4, 3->4, and 4->exit (0.9) with feedback
// 4->3 (0.1)
func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		Name:          "open-qnet-4",
		SourceRate:    4.0,
		SourceStation: 1,
		ServiceRates:  map[int]float64{1: 5.0, 2: 3.0, 3: 3.0, 4: 5.0},
		Routing: map[int][]Branch{
			1: {{Dest: 2, Prob: 0.4}, {Dest: 3, Prob: 0.6}},
			2: {{Dest: 4, Prob: 1.0}},
			3: {{Dest: 4, Prob: 1.0}},
			4: {{Dest: Exit, Prob: 0.9}, {Dest: 3, Prob: 0.1}},
		},
		WarmupCustomers: 1000,
		TargetCompleted: 50000,
	}
}

// StationIDs returns the configured station identifiers in ascending order
func (cfg *ExperimentConfig) StationIDs() []int {
	ids := make([]int, 0, len(cfg.ServiceRates))
	for id := range cfg.ServiceRates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Validate checks every configuration constraint, reporting the first
// violation found
func (cfg *ExperimentConfig) Validate() error {
	if cfg.SourceRate <= 0.0 {
		return fmt.Errorf("source rate must be positive, have %f", cfg.SourceRate)
	}
	if len(cfg.ServiceRates) == 0 {
		return fmt.Errorf("no stations configured")
	}
	for id, mu := range cfg.ServiceRates {
		if id == Exit {
			return fmt.Errorf("station id %d is reserved for the exit", Exit)
		}
		if mu <= 0.0 {
			return fmt.Errorf("service rate of station %d must be positive, have %f", id, mu)
		}
	}
	_, present := cfg.ServiceRates[cfg.SourceStation]
	if !present {
		return fmt.Errorf("source station %d is not a station", cfg.SourceStation)
	}
	if cfg.WarmupCustomers < 0 {
		return fmt.Errorf("warm-up customer count must be non-negative, have %d", cfg.WarmupCustomers)
	}
	if cfg.TargetCompleted <= 0 {
		return fmt.Errorf("completion target must be positive, have %d", cfg.TargetCompleted)
	}

	// the routing constraints live with the routing table construction
	_, err := CreateRoutingTable(cfg.Routing, cfg.StationIDs())
	return err
}

// ReadExperimentConfig deserializes a byte slice holding a representation
// of an ExperimentConfig.  If the dict argument is empty the named file is
// read to acquire the bytes.  The deserialized config is returned, or an
// error from the file read, the deserialization, or validation
func ReadExperimentConfig(filename string, useYAML bool, dict []byte) (*ExperimentConfig, error) {
	var err error

	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ExperimentConfig{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	if err = example.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment configuration: %w", err)
	}

	return &example, nil
}

// WriteToFile stores the ExperimentConfig to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of
// this name
func (cfg *ExperimentConfig) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*cfg)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*cfg, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}
