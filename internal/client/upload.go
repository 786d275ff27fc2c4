package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgnsrekt/lingocast/internal/job"
)

// Progress receives the number of CSV bytes sent so far and the file size.
type Progress func(sent, total int64)

// GenerateFromCSV uploads the CSV at path with the job descriptor and waits
// for the generated track. The upload is streamed so onProgress, which may
// be nil, sees bytes as they leave.
func (c *Client) GenerateFromCSV(ctx context.Context, path string, req job.Request, onProgress Progress) (job.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return job.Response{}, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return job.Response{}, err
	}
	descriptor, err := json.Marshal(req)
	if err != nil {
		return job.Response{}, err
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, filepath.Base(path), &countingReader{
			r:     f,
			total: st.Size(),
			fn:    onProgress,
		}, descriptor))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("csv-to-audio"), pr)
	if err != nil {
		return job.Response{}, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	var out job.Response
	if err := c.do(httpReq, &out); err != nil {
		return job.Response{}, err
	}
	if !out.Success {
		return out, unsuccessful(out.Error, out.Message)
	}
	return out, nil
}

func writeForm(mw *multipart.Writer, filename string, csv io.Reader, descriptor []byte) error {
	part, err := mw.CreateFormFile("csv_file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, csv); err != nil {
		return fmt.Errorf("failed to send CSV: %w", err)
	}
	if err := mw.WriteField("request", string(descriptor)); err != nil {
		return err
	}
	return mw.Close()
}

type countingReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    Progress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		if c.fn != nil {
			c.fn(c.sent, c.total)
		}
	}
	return n, err
}
