package wsh

import (
	"context"
	"io"
	"sync"
)

// uploadChunkSize is the write granularity for Upload.
const uploadChunkSize = 64 * 1024

// ProgressFunc reports cumulative bytes transferred so far.
type ProgressFunc func(transferred int64)

// Upload opens a file channel addressed by "upload:<path>" and streams src
// to it in uploadChunkSize chunks, reporting progress as it goes. Transfer
// is considered complete on the first of CLOSE or EXIT; a second arriving
// after completion is ignored.
func (c *Client) Upload(ctx context.Context, remotePath string, src io.Reader, onProgress ProgressFunc) error {
	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) {
		once.Do(func() { done <- err })
	}

	s, err := c.OpenFile(ctx, OpenOptions{
		Command: "upload:" + remotePath,
		OnExit:  func(code int32) { finish(nil) },
		OnClose: func() { finish(nil) },
	})
	if err != nil {
		return err
	}
	defer s.Close()

	var transferred int64
	buf := make([]byte, uploadChunkSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := s.Write(buf[:n]); werr != nil {
				return werr
			}
			transferred += int64(n)
			if onProgress != nil {
				onProgress(transferred)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if err := s.Close(); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Download opens a file channel addressed by "download:<path>" and copies
// every inbound chunk to dst until the channel closes.
func (c *Client) Download(ctx context.Context, remotePath string, dst io.Writer, onProgress ProgressFunc) error {
	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) {
		once.Do(func() { done <- err })
	}

	var mu sync.Mutex
	var transferred int64

	_, err := c.OpenFile(ctx, OpenOptions{
		Command: "download:" + remotePath,
		OnData: func(p []byte) {
			mu.Lock()
			_, werr := dst.Write(p)
			if werr == nil {
				transferred += int64(len(p))
			}
			mu.Unlock()
			if werr != nil {
				finish(werr)
				return
			}
			if onProgress != nil {
				onProgress(transferred)
			}
		},
		OnExit:  func(code int32) { finish(nil) },
		OnClose: func() { finish(nil) },
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
