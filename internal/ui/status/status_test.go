package status_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/ui/status"
)

func TestSize(t *testing.T) {
	assert.Equal(t, "0 B", status.Size(0))
	assert.Equal(t, "0 B", status.Size(-5))
	assert.Equal(t, "100 B", status.Size(100))
	assert.Equal(t, "2.9 KiB", status.Size(3000))
	assert.Equal(t, "4.0 MiB", status.Size(4*1024*1024+1))
}

func TestLine(t *testing.T) {
	tests := []struct {
		event domain.Event
		want  string
	}{
		{domain.Event{Kind: domain.EventBeforeInstall}, "installing"},
		{domain.Event{Kind: domain.EventBeforeDownload}, "downloading"},
		{domain.Event{Kind: domain.EventProgress, Written: 100, Total: 3000}, "downloading 100 B / 2.9 KiB"},
		{domain.Event{Kind: domain.EventProgress, Written: 100}, "downloading 100 B"},
		{domain.Event{Kind: domain.EventAfterDownload}, "verifying"},
		{domain.Event{Kind: domain.EventAfterInstall}, "installed"},
		{domain.Event{Kind: domain.EventCurrent}, "already current"},
		{domain.Event{Kind: domain.EventInstallFailed}, "install failed"},
		{domain.Event{Kind: domain.EventBeforeCleanup}, "removing unreferenced package"},
		{domain.Event{Kind: domain.EventAfterCleanup}, "removed"},
	}

	for _, tt := range tests {
		t.Run(tt.event.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Line(tt.event))
		})
	}
}

func TestFinal(t *testing.T) {
	assert.True(t, status.Final(domain.Event{Kind: domain.EventAfterInstall}))
	assert.True(t, status.Final(domain.Event{Kind: domain.EventInstallFailed}))
	assert.False(t, status.Final(domain.Event{Kind: domain.EventProgress}))
	assert.False(t, status.Final(domain.Event{Kind: domain.EventBeforeCleanup}))
}

func TestQuarter(t *testing.T) {
	assert.Equal(t, -1, status.Quarter(domain.Event{Written: 10}))
	assert.Equal(t, 0, status.Quarter(domain.Event{Written: 0, Total: 100}))
	assert.Equal(t, 1, status.Quarter(domain.Event{Written: 25, Total: 100}))
	assert.Equal(t, 3, status.Quarter(domain.Event{Written: 99, Total: 100}))
	assert.Equal(t, 4, status.Quarter(domain.Event{Written: 100, Total: 100}))
}

func TestCompletion(t *testing.T) {
	assert.Equal(t, "installed in 1.3s", status.Completion("install serif", 1300*time.Millisecond, nil))
	assert.Equal(t, "updated in 250ms", status.Completion("update catalog", 250*time.Millisecond, nil))
	assert.Equal(t, "cleaned up in 1s", status.Completion("cleanup", time.Second, nil))
	assert.Equal(t, "completed in 2s", status.Completion("verify serif", 2*time.Second, nil))
	assert.Equal(t, "failed after 1.3s", status.Completion("install serif", 1300*time.Millisecond, errors.New("boom")))
}
