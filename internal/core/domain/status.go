package domain

import (
	"strconv"
	"sync"
)

// SyncPhase names the step the ingestion loop is currently in.
type SyncPhase string

const (
	PhaseIdle     SyncPhase = "idle"
	PhasePreGet   SyncPhase = "preget"
	PhasePostGet  SyncPhase = "postget"
	PhasePreCopy  SyncPhase = "precopy"
	PhasePostCopy SyncPhase = "postcopy"
	PhasePrePut   SyncPhase = "preput"
	PhasePostPut  SyncPhase = "postput"
)

// SyncStatus is a liveness handle shared by the ingestion loop and its reporter.
type SyncStatus struct {
	mu     sync.Mutex
	phase  SyncPhase
	length uint64
	seq    uint64
}

// NewSyncStatus returns a status in the idle phase.
func NewSyncStatus() *SyncStatus {
	return &SyncStatus{phase: PhaseIdle}
}

// SetPhase records the current phase.
func (s *SyncStatus) SetPhase(phase SyncPhase) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

// SetLength records the current log length.
func (s *SyncStatus) SetLength(length uint64) {
	s.mu.Lock()
	s.length = length
	s.mu.Unlock()
}

// SetSeq records the last fully ingested upstream sequence.
func (s *SyncStatus) SetSeq(seq uint64) {
	s.mu.Lock()
	s.seq = seq
	s.mu.Unlock()
}

// SyncSnapshot is a point-in-time copy of a SyncStatus.
type SyncSnapshot struct {
	Phase  SyncPhase
	Length uint64
	Seq    uint64
}

// Snapshot returns the current status.
func (s *SyncStatus) Snapshot() SyncSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncSnapshot{Phase: s.phase, Length: s.length, Seq: s.seq}
}

func (s SyncSnapshot) String() string {
	return string(s.Phase) + " length=" + strconv.FormatUint(s.Length, 10) + " seq=" + strconv.FormatUint(s.Seq, 10)
}
