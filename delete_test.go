package mediarouter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestService_DeleteMedia(t *testing.T) {
	const (
		recordID  = "rec-1"
		objectKey = "owner-1/1700000000000123456.mp4"
		thumbKey  = "thumbnails/owner-1/1700000000000123456_thumb.jpg"
	)

	tests := []struct {
		name           string
		input          DeleteInput
		storeErr       error
		expectStore    bool
		driver         func(f *serviceFixture) *MockStorageDriver
		deleteErrs     map[string]error
		expectedKeys   []string
		expectOrphan   bool
		expectedResult bool
	}{
		{
			name:           "should delete record and both objects on the recorded provider",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ThumbnailKey: thumbKey, ProviderID: Storage2},
			expectStore:    true,
			driver:         func(f *serviceFixture) *MockStorageDriver { return f.secondary },
			expectedKeys:   []string{objectKey, thumbKey},
			expectedResult: true,
		},
		{
			name:           "should delete only the primary file when there is no thumbnail",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ProviderID: Storage1},
			expectStore:    true,
			driver:         func(f *serviceFixture) *MockStorageDriver { return f.primary },
			expectedKeys:   []string{objectKey},
			expectedResult: true,
		},
		{
			name:           "should delete from primary when recorded slot is no longer configured",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ProviderID: Storage4},
			expectStore:    true,
			driver:         func(f *serviceFixture) *MockStorageDriver { return f.primary },
			expectedKeys:   []string{objectKey},
			expectedResult: true,
		},
		{
			name:           "should still remove objects when record is already gone",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ProviderID: Storage2},
			storeErr:       ErrRecordNotFound,
			expectStore:    true,
			driver:         func(f *serviceFixture) *MockStorageDriver { return f.secondary },
			expectedKeys:   []string{objectKey},
			expectedResult: true,
		},
		{
			name:           "should return false and keep objects when record delete fails",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ProviderID: Storage2},
			storeErr:       errors.New("connection refused"),
			expectStore:    true,
			expectedResult: false,
		},
		{
			name:           "should return false and report orphan when object delete fails",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ThumbnailKey: thumbKey, ProviderID: Storage2},
			expectStore:    true,
			driver:         func(f *serviceFixture) *MockStorageDriver { return f.secondary },
			deleteErrs:     map[string]error{thumbKey: errors.New("access denied")},
			expectedKeys:   []string{objectKey, thumbKey},
			expectOrphan:   true,
			expectedResult: false,
		},
		{
			name:           "should reject missing provider",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey},
			expectedResult: false,
		},
		{
			name:           "should reject out of range provider",
			input:          DeleteInput{RecordID: recordID, ObjectKey: objectKey, ProviderID: 7},
			expectedResult: false,
		},
		{
			name:           "should reject missing object key",
			input:          DeleteInput{RecordID: recordID, ProviderID: Storage1},
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, true, nil)

			if tt.expectStore {
				f.store.On("Delete", mock.Anything, recordID).Return(tt.storeErr).Once()
			}

			var (
				mu      sync.Mutex
				deleted []string
			)
			if tt.driver != nil {
				d := tt.driver(f)
				for _, key := range tt.expectedKeys {
					key := key
					d.On("Delete", mock.Anything, key).
						Run(func(mock.Arguments) {
							mu.Lock()
							deleted = append(deleted, key)
							mu.Unlock()
						}).
						Return(tt.deleteErrs[key]).
						Once()
				}
			}

			if tt.expectOrphan {
				f.orphans.
					On("Report", mock.Anything, mock.MatchedBy(func(o Orphan) bool {
						return o.Reason == OrphanDeleteFailed && o.ProviderID == tt.input.ProviderID
					})).
					Return(nil).
					Once()
			}

			got := f.service.DeleteMedia(context.Background(), tt.input)

			assert.Equal(t, tt.expectedResult, got)
			assert.ElementsMatch(t, tt.expectedKeys, deleted)
			f.store.AssertExpectations(t)
			f.primary.AssertExpectations(t)
			f.secondary.AssertExpectations(t)
			f.orphans.AssertExpectations(t)

			if !tt.expectStore {
				f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			}
			if tt.driver == nil {
				f.primary.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
				f.secondary.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDeleteInputFor(t *testing.T) {
	thumb := "thumbnails/o/1_thumb.jpg"
	record := &MediaRecord{ID: "rec", ObjectKey: "o/1.mp4", ThumbnailKey: &thumb, ProviderID: Storage3}

	assert.Equal(t, DeleteInput{
		RecordID:     "rec",
		ObjectKey:    "o/1.mp4",
		ThumbnailKey: thumb,
		ProviderID:   Storage3,
	}, DeleteInputFor(record))

	record.ThumbnailKey = nil
	assert.Empty(t, DeleteInputFor(record).ThumbnailKey)
}
