package qnetsim

// trace.go holds the trace manager, which gathers a record of every
// processed event for post-run inspection.  Traces serialize to yaml or
// json, selected by file extension

import (
	"encoding/json"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// A QueueTrace records the visitation of one event to the network,
// together with the state of the station it touched after the event
// was applied
type QueueTrace struct {
	Time     float64 `json:"time" yaml:"time"`
	Type     string  `json:"type" yaml:"type"`
	Customer int     `json:"customer" yaml:"customer"`
	Station  int     `json:"station" yaml:"station"`
	QueueLen int     `json:"queuelen" yaml:"queuelen"`
	Busy     bool    `json:"busy" yaml:"busy"`
	Note     string  `json:"note" yaml:"note"`
}

// TraceManager gathers trace records across a run.  By testing the InUse
// flag we can inhibit gathering when a trace isn't wanted, while keeping
// the calls to its methods in place
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// all trace records for this experiment, in processing order
	Traces []QueueTrace `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the
// experiment and a flag indicating whether the trace manager is active
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.Traces = make([]QueueTrace, 0)
	return tm
}

// Active tells the caller whether the trace manager is being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace stores a record of one processed event
func (tm *TraceManager) AddTrace(trace QueueTrace) {
	if !tm.InUse {
		return
	}
	tm.Traces = append(tm.Traces, trace)
}

// WriteToFile stores the gathered traces to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of
// this name
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
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
	return true
}
