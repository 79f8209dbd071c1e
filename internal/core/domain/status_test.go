package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/ims/internal/core/domain"
)

func TestSyncStatus(t *testing.T) {
	status := domain.NewSyncStatus()
	assert.Equal(t, domain.PhaseIdle, status.Snapshot().Phase)

	status.SetPhase(domain.PhasePrePut)
	status.SetLength(12)
	status.SetSeq(7)

	snap := status.Snapshot()
	assert.Equal(t, domain.SyncSnapshot{Phase: domain.PhasePrePut, Length: 12, Seq: 7}, snap)
	assert.Equal(t, "preput length=12 seq=7", snap.String())
}
