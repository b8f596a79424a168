package channel_test

import (
	"testing"

	"dapbuddy/backend/internal/channel"
	"dapbuddy/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMarkRead_AdvancesAndBroadcasts(t *testing.T) {
	storageMock := new(MockStorage)
	tracker := channel.NewReadReceiptTracker(storageMock)

	storageMock.On("GetReadPointer", "booking-1", "user_A").Return(nil, nil)
	storageMock.On("SaveReadPointer", mock.AnythingOfType("*models.ReadPointer")).Return(nil)
	storageMock.On("PublishReadPointer", models.ReadPointerSync{
		BookingID:     "booking-1",
		ParticipantID: "user_A",
		LastSeenLogID: 10,
	}).Return(nil)

	moved, err := tracker.MarkRead("booking-1", "user_A", 10)
	require.NoError(t, err)
	assert.True(t, moved)
	storageMock.AssertExpectations(t)
}

func TestMarkRead_StaleValueIsNoOp(t *testing.T) {
	storageMock := new(MockStorage)
	tracker := channel.NewReadReceiptTracker(storageMock)

	current := &models.ReadPointer{BookingID: "booking-1", ParticipantID: "user_A", LastSeenLogID: 20}
	storageMock.On("GetReadPointer", "booking-1", "user_A").Return(current, nil)

	// another tab already advanced past 15
	moved, err := tracker.MarkRead("booking-1", "user_A", 15)
	require.NoError(t, err)
	assert.False(t, moved)

	// equal is stale too
	moved, err = tracker.MarkRead("booking-1", "user_A", 20)
	require.NoError(t, err)
	assert.False(t, moved)

	storageMock.AssertNotCalled(t, "SaveReadPointer", mock.Anything)
	storageMock.AssertNotCalled(t, "PublishReadPointer", mock.Anything)
}

func TestMarkRead_BroadcastFailureStillSaves(t *testing.T) {
	storageMock := new(MockStorage)
	tracker := channel.NewReadReceiptTracker(storageMock)

	storageMock.On("GetReadPointer", "booking-1", "user_A").Return(nil, nil)
	storageMock.On("SaveReadPointer", mock.AnythingOfType("*models.ReadPointer")).Return(nil)
	storageMock.On("PublishReadPointer", mock.AnythingOfType("models.ReadPointerSync")).Return(assert.AnError)

	moved, err := tracker.MarkRead("booking-1", "user_A", 5)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestUnreadCount_ExcludesOwnEntries(t *testing.T) {
	storageMock := new(MockStorage)
	tracker := channel.NewReadReceiptTracker(storageMock)

	ptr := &models.ReadPointer{BookingID: "booking-1", ParticipantID: "user_A", LastSeenLogID: 8}
	storageMock.On("GetReadPointer", "booking-1", "user_A").Return(ptr, nil)
	storageMock.On("CountEntriesAfter", "booking-1", uint(8), "user_A").Return(int64(3), nil)

	count, err := tracker.UnreadCount("booking-1", "user_A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUnreadCount_NoPointerCountsEverything(t *testing.T) {
	storageMock := new(MockStorage)
	tracker := channel.NewReadReceiptTracker(storageMock)

	storageMock.On("GetReadPointer", "booking-1", "user_A").Return(nil, nil)
	storageMock.On("CountEntriesAfter", "booking-1", uint(0), "user_A").Return(int64(12), nil)

	count, err := tracker.UnreadCount("booking-1", "user_A")
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
