package releases

import (
	"context"
	"errors"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("release request failed")
	// ErrMalformedResponse means the payload could not be decoded or lacked tag_name.
	ErrMalformedResponse = errors.New("malformed release payload")
	// ErrNoCandidates means nothing survived the prerelease/draft filter.
	ErrNoCandidates = errors.New("no published releases found")
)

type Release struct {
	Tag        string
	Prerelease bool
	Draft      bool
}

type Lister interface {
	// List returns published version strings, newest first, without the
	// leading tag marker.
	List(ctx context.Context, owner, repo string) ([]string, error)
}

// Candidates drops prereleases and drafts, strips the tag marker and keeps
// at most limit entries in payload order.
func Candidates(releases []Release, limit int) []string {
	versions := make([]string, 0, len(releases))
	for _, r := range releases {
		if r.Prerelease || r.Draft {
			continue
		}
		versions = append(versions, StripMarker(r.Tag))
		if limit > 0 && len(versions) == limit {
			break
		}
	}
	return versions
}

// StripMarker removes a single leading non-digit marker such as "v" when a
// digit follows it. "v1.2.0" becomes "1.2.0"; "1.2.0" and "vv1" are kept.
func StripMarker(tag string) string {
	if len(tag) < 2 || isDigit(tag[0]) || !isDigit(tag[1]) {
		return tag
	}
	return tag[1:]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
