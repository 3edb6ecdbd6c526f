package media

import (
	"errors"
	"net/url"
	"strings"
)

var ErrMalformedAssetURL = errors.New("malformed asset url")

// PublicID recovers the storage public identifier from a delivery URL.
// The identifier is the last two path segments (folder/name). Image URLs
// embed the format as a file extension, so stripExt removes everything
// after the last dot of the final segment; raw assets keep it.
func PublicID(rawURL string, stripExt bool) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrMalformedAssetURL
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 {
		return "", ErrMalformedAssetURL
	}
	folder, name := segs[len(segs)-2], segs[len(segs)-1]
	if folder == "" || name == "" {
		return "", ErrMalformedAssetURL
	}
	if stripExt {
		if i := strings.LastIndex(name, "."); i > 0 {
			name = name[:i]
		}
	}
	return folder + "/" + name, nil
}
