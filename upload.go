package ferry

import "github.com/meigma/ferry/core"

// Upload sends the file at readPath to url on a new goroutine and returns
// immediately.
//
// credentials is "user:password" for basic authentication, or empty for
// none. The password may contain colons. Callbacks run on the owner
// goroutine with userData passed through untouched. Malformed arguments
// return ErrInvalidArgument, and use of the default engine before Init
// returns ErrNotInitialized; in both cases no callback is ever called.
func (c *Client) Upload(url, readPath, credentials string, cb UploadCallbacks, userData any) (*Transfer, error) {
	creds, err := core.ParseCredentials(credentials)
	if err != nil {
		return nil, err
	}
	return c.start(&core.Request{
		Kind:        core.KindUpload,
		URL:         url,
		LocalPath:   readPath,
		Credentials: creds,
		Callbacks:   cb.callbacks(),
		UserData:    userData,
	})
}
