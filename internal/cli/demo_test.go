package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
)

func TestRunScenario(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		l    auditlog.Localizer
		want []string
	}{
		{
			name: "english",
			l:    auditlog.English,
			want: []string{
				"Schnuffi (Pet) was added to Pets",
				"Name: Max -> Maximilian",
				"Schnuffi (Pet) deleted",
				"Schnuffi (Pet) was removed from Pets",
			},
		},
		{
			name: "german",
			l:    auditlog.German,
			want: []string{
				"Schnuffi (Pet) wurde zu Pets hinzugefügt",
				"Schnuffi (Pet) wurde von Pets entfernt",
			},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			logger, hook := test.NewNullLogger()
			var out bytes.Buffer

			require.NoError(t, runScenario(context.Background(), &out, tc.l, logger))

			got := out.String()
			assert.Contains(t, got, "History of user 1:")
			for _, want := range tc.want {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, got, "Rocky", "rolled back save must not be stored")
			assert.NotContains(t, got, "secret")
			assert.NotEmpty(t, hook.AllEntries(), "messages are logged")
		})
	}
}
