// Package logtail follows a jail's console log the way `fleetd logs`
// presents it: read whatever's there, then keep polling for new lines
// until the log goes quiet.
package logtail

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"
)

// PollUntilIdle reads path line by line, writing each to out, and keeps
// polling for more after hitting EOF until idle has passed with nothing
// new written.
func PollUntilIdle(path string, out io.Writer, idle, pollEvery time.Duration) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	reader := bufio.NewReader(f)
	lastActivity := time.Now()

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if _, err := out.Write(line); err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			if time.Since(lastActivity) > idle {
				return nil
			}
			time.Sleep(pollEvery)
			continue
		}
		if readErr != nil {
			return readErr
		}
		lastActivity = time.Now()
	}
}
