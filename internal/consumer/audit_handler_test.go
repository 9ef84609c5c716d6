package consumer

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAuditHandlerTracksRosterSize(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAuditHandler(zerolog.New(&buf))

	err := handler.Handle(context.Background(), Message{
		EventType: "participant.signed_up",
		EventID:   "evt-9",
		Payload:   []byte(`{"event_id":"evt-9","activity":"Debate Team","email":"new@mergington.edu","roster_size":3,"max_participants":12,"occurred_at":"2026-10-15T09:00:00Z"}`),
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"activity":"Debate Team"`)

	require.Equal(t, 3.0, gaugeValue(t, "roster_audit_roster_size", "activity", "Debate Team"))
}

func TestAuditHandlerRejectsMalformedPayload(t *testing.T) {
	handler := NewAuditHandler(zerolog.Nop())

	err := handler.Handle(context.Background(), Message{EventType: "participant.removed", Payload: []byte(`{"activity":`)})
	require.Error(t, err)

	err = handler.Handle(context.Background(), Message{EventType: "participant.removed", Payload: []byte(`{"email":"x@mergington.edu"}`)})
	require.Error(t, err)
}

func TestAuditHandlerIgnoresOtherEvents(t *testing.T) {
	handler := NewAuditHandler(zerolog.Nop())
	require.NoError(t, handler.Handle(context.Background(), Message{EventType: "activity.created", Payload: []byte(`not json`)}))
}

// gaugeValue reads a gauge from the default registry through the client model types.
func gaugeValue(t *testing.T, name, labelName, labelValue string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == name {
			family = f
			break
		}
	}
	require.NotNil(t, family, "metric %s not registered", name)

	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == labelName && label.GetValue() == labelValue {
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("no %s sample with %s=%s", name, labelName, labelValue)
	return 0
}
