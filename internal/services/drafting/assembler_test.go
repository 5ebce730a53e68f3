package drafting

import (
	"context"
	"errors"
	"testing"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler_Assemble(t *testing.T) {
	t.Parallel()

	fetched := &models.EmailContext{SenderName: "Sarah Johnson", Subject: "Q3", SenderTone: models.ToneNeutral, OriginalContent: "snippet"}
	disconnected := &models.User{ID: uuid.New()}

	tests := []struct {
		name        string
		fetcher     *mockFetcher
		threadID    string
		body        string
		user        *models.User
		want        *models.EmailContext
		wantFetches int
	}{
		{
			name:        "thread fetched",
			fetcher:     &mockFetcher{ctx: fetched},
			threadID:    "t-1",
			user:        connectedUser(),
			want:        fetched,
			wantFetches: 1,
		},
		{
			name:        "fetch failure falls back to body",
			fetcher:     &mockFetcher{err: errors.New("network down")},
			threadID:    "t-1",
			body:        "original",
			user:        connectedUser(),
			want:        &models.EmailContext{SenderName: "Unknown", Subject: "Re: (No Subject)", SenderTone: models.ToneNeutral, OriginalContent: "original"},
			wantFetches: 1,
		},
		{
			name:        "fetch failure without body yields nil",
			fetcher:     &mockFetcher{err: errors.New("empty thread")},
			threadID:    "t-1",
			user:        connectedUser(),
			wantFetches: 1,
		},
		{
			name:     "sentinel thread is never fetched",
			fetcher:  &mockFetcher{ctx: fetched},
			threadID: SentinelThreadID,
			user:     connectedUser(),
		},
		{
			name:     "user without credential is never fetched",
			fetcher:  &mockFetcher{ctx: fetched},
			threadID: "t-1",
			body:     "original",
			user:     disconnected,
			want:     &models.EmailContext{SenderName: "Unknown", Subject: "Re: (No Subject)", SenderTone: models.ToneNeutral, OriginalContent: "original"},
		},
		{
			name:    "nothing to go on",
			fetcher: &mockFetcher{ctx: fetched},
			user:    connectedUser(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewAssembler(tt.fetcher, nil)
			got := a.Assemble(context.Background(), tt.threadID, tt.body, tt.user)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFetches, tt.fetcher.calls)
		})
	}
}

func TestAssembler_NilFetcher(t *testing.T) {
	t.Parallel()

	got := NewAssembler(nil, nil).Assemble(context.Background(), "t-1", "", connectedUser())
	require.Nil(t, got)
}
