package tui_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/parcel/internal/adapters/tui"
	"go.trai.ch/parcel/internal/core/domain"
)

func newTestRenderer(t *testing.T) (*tui.Renderer, *tui.Model) {
	t.Helper()
	model := newModel(t)
	renderer := tui.NewRenderer(
		model,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
	return renderer, model
}

func TestRenderer_Lifecycle(t *testing.T) {
	renderer, _ := newTestRenderer(t)

	require.NoError(t, renderer.Start(context.Background()))
	require.NoError(t, renderer.Stop())
	require.NoError(t, renderer.Wait())
}

func TestRenderer_ForwardsMessages(t *testing.T) {
	renderer, model := newTestRenderer(t)
	require.NotNil(t, renderer.Program())

	require.NoError(t, renderer.Start(context.Background()))

	start := time.Now()
	renderer.OnSpanStart("1", "", "install doc", start)
	renderer.OnEvent(domain.Event{Kind: domain.EventBeforeInstall, Package: "doc"})
	renderer.OnEvent(domain.Event{Kind: domain.EventAfterInstall, Package: "doc"})
	renderer.OnSpanComplete("1", start.Add(time.Second), errors.New("boom"))

	require.NoError(t, renderer.Stop())
	require.NoError(t, renderer.Wait())

	// Messages are handled in order before the quit message.
	require.Contains(t, model.PackageMap, "doc")
	assert.Equal(t, tui.StatusDone, model.PackageMap["doc"].Status)
	require.Len(t, model.Spans, 1)
	assert.True(t, model.Spans[0].Done)
	assert.Error(t, model.Spans[0].Err)
}
