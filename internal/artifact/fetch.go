package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// errBadHTTPStatus is returned when the dataset server answers anything but 200.
var errBadHTTPStatus = errors.New("unexpected http status")

// HTTPFetcher returns a FetchFunc downloading the artifact from the given URL.
func HTTPFetcher(url string) FetchFunc {
	return func(ctx context.Context, tmpPath string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}

		response, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}

		defer func() {
			_ = response.Body.Close()
		}()

		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
		}

		outputFile, err := os.Create(filepath.Clean(tmpPath))
		if err != nil {
			return err
		}

		if _, err = io.Copy(outputFile, response.Body); err != nil {
			_ = outputFile.Close()

			return err
		}

		return outputFile.Close()
	}
}
