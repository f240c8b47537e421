// --- File: internal/storage/firestore/eventstore_internal_test.go ---
package firestore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

func TestEventDocID_SortsInEmissionOrder(t *testing.T) {
	testCases := []struct {
		name    string
		emitted []notification.Event
	}{
		{
			name: "Single attempt that fails",
			emitted: []notification.Event{
				{Type: notification.EventSending, AttemptNumber: 1},
				{Type: notification.EventFailed, AttemptNumber: 1},
			},
		},
		{
			name: "Single attempt that succeeds",
			emitted: []notification.Event{
				{Type: notification.EventSending, AttemptNumber: 1},
				{Type: notification.EventSuccess, AttemptNumber: 1},
			},
		},
		{
			name: "Retries exhausted",
			emitted: []notification.Event{
				{Type: notification.EventSending, AttemptNumber: 1},
				{Type: notification.EventRetrying, AttemptNumber: 2},
				{Type: notification.EventRetrying, AttemptNumber: 3},
				{Type: notification.EventFailed, AttemptNumber: 3},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			want := make([]string, len(tc.emitted))
			for i, e := range tc.emitted {
				want[i] = eventDocID(e)
			}

			stored := append([]string(nil), want...)
			sort.Strings(stored)

			assert.Equal(t, want, stored)
		})
	}
}
