package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicID(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		stripExt bool
		want     string
		wantErr  bool
	}{
		{
			name:     "cover url strips extension",
			rawURL:   "https://res.cloudinary.com/demo/image/upload/v1712/book-covers/abc123.png",
			stripExt: true,
			want:     "book-covers/abc123",
		},
		{
			name:     "raw url keeps extension",
			rawURL:   "https://res.cloudinary.com/demo/raw/upload/v1712/book-pdfs/abc123.pdf",
			stripExt: false,
			want:     "book-pdfs/abc123.pdf",
		},
		{
			name:     "multi-dot name strips only the last extension",
			rawURL:   "https://res.cloudinary.com/demo/image/upload/book-covers/my.book.cover.jpg",
			stripExt: true,
			want:     "book-covers/my.book.cover",
		},
		{
			name:     "dotless final segment unchanged",
			rawURL:   "https://res.cloudinary.com/demo/image/upload/book-covers/abc123",
			stripExt: true,
			want:     "book-covers/abc123",
		},
		{
			name:    "single segment path",
			rawURL:  "https://res.cloudinary.com/abc123.png",
			wantErr: true,
		},
		{
			name:    "empty url",
			rawURL:  "",
			wantErr: true,
		},
		{
			name:    "unparseable url",
			rawURL:  "://not a url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PublicID(tt.rawURL, tt.stripExt)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedAssetURL)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
