// Package testutil provides call-recording states and sinks for tests.
package testutil

import (
	"sync"

	"github.com/comalice/hfsm"
)

// Journal records lifecycle calls from many probes in a single ordered log.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the log, e.g. ["A.OnEnter", "A.Update", "A.OnExit"].
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// Reset clears the log.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// Probe is a leaf state that counts its lifecycle calls and optionally logs
// them to a Journal.
type Probe struct {
	name    string
	journal *Journal

	Enters  int
	Updates int
	Exits   int

	// OnUpdate, when set, runs inside Update after counting.
	OnUpdate func()
}

// NewProbe creates a probe. journal may be nil.
func NewProbe(name string, journal *Journal) *Probe {
	return &Probe{name: name, journal: journal}
}

func (p *Probe) Name() string { return p.name }

func (p *Probe) OnEnter() {
	p.Enters++
	p.log("OnEnter")
}

func (p *Probe) Update() {
	p.Updates++
	p.log("Update")
	if p.OnUpdate != nil {
		p.OnUpdate()
	}
}

func (p *Probe) OnExit() {
	p.Exits++
	p.log("OnExit")
}

func (p *Probe) log(call string) {
	if p.journal != nil {
		p.journal.add(p.name + "." + call)
	}
}

// RecordingSink keeps every diagnostic it receives.
type RecordingSink struct {
	mu          sync.Mutex
	diagnostics []hfsm.Diagnostic
}

func (s *RecordingSink) Report(d hfsm.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, d)
}

// All returns a copy of every recorded diagnostic.
func (s *RecordingSink) All() []hfsm.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hfsm.Diagnostic(nil), s.diagnostics...)
}

// OfKind returns the recorded diagnostics of kind k.
func (s *RecordingSink) OfKind(k hfsm.Kind) []hfsm.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []hfsm.Diagnostic
	for _, d := range s.diagnostics {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics of kind k were recorded.
func (s *RecordingSink) Count(k hfsm.Kind) int {
	return len(s.OfKind(k))
}

// Reset drops all recorded diagnostics.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = nil
}
