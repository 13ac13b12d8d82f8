package redis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hospiq/patient-queue/internal/models"
)

func TestMemberRoundTrip(t *testing.T) {
	e := &models.QueueEntry{
		ID:          "abc-123",
		QueueNumber: models.FormatQueueNumber(models.DepartmentOPD, 14),
	}

	m := member(e)
	require.Equal(t, "000014|abc-123", m)
	require.Equal(t, "abc-123", memberID(m))
}

func TestMemberIDSurvivesWideSequences(t *testing.T) {
	// The sequence pads to six digits but widens past 999999; the id must be
	// recovered by the separator, never by a fixed offset.
	e := &models.QueueEntry{
		ID:          "abc-123",
		QueueNumber: models.FormatQueueNumber(models.DepartmentEmergency, 1234567),
	}

	m := member(e)
	require.Equal(t, "1234567|abc-123", m)
	require.Equal(t, "abc-123", memberID(m))

	// Malformed queue numbers fall back to a zero sequence.
	bad := &models.QueueEntry{ID: "x", QueueNumber: "garbage"}
	require.Equal(t, "000000|x", member(bad))
	require.Equal(t, "x", memberID(member(bad)))
}
