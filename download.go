package ferry

import "github.com/meigma/ferry/core"

// Download fetches url into the file at savePath on a new goroutine and
// returns immediately. The file is created or truncated; its parent
// directory must exist.
//
// Callbacks run on the owner goroutine with userData passed through
// untouched. A malformed url or savePath returns ErrInvalidArgument, and use
// of the default engine before Init returns ErrNotInitialized; in both cases
// no callback is ever called.
func (c *Client) Download(url, savePath string, cb DownloadCallbacks, userData any) (*Transfer, error) {
	return c.start(&core.Request{
		Kind:      core.KindDownload,
		URL:       url,
		LocalPath: savePath,
		Callbacks: cb.callbacks(),
		UserData:  userData,
	})
}
