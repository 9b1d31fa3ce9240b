package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"safeshift/internal/report"
	dErrors "safeshift/pkg/domain-errors"
)

// CreateReport submits one report. It is not idempotent: retrying after a
// timeout can create a duplicate.
func (c *Client) CreateReport(ctx context.Context, req report.CreateRequest) (*report.Receipt, error) {
	var receipt report.Receipt
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/reports",
		route:  "/reports",
		body:   req,
		out:    &receipt,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	if receipt.Ref() == "" {
		return nil, dErrors.New(dErrors.CodeAPI, "server did not return a report id")
	}
	return &receipt, nil
}

func (c *Client) ListReports(ctx context.Context, filter report.ListFilter) ([]report.Report, error) {
	var env reportsEnvelope
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/reports",
		route:  "/reports",
		query:  filter.Query(),
		out:    &env,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return env.Reports, nil
}

func (c *Client) GetReport(ctx context.Context, id string) (*report.Report, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "report id is required")
	}
	var r report.Report
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/reports/" + url.PathEscape(id),
		route:  "/reports/{id}",
		out:    &r,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) UpdateReportStatus(ctx context.Context, id string, update report.StatusUpdate) (*report.Report, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "report id is required")
	}
	if !update.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid status %q", update.Status))
	}
	var r report.Report
	err := c.do(ctx, call{
		method: http.MethodPatch,
		path:   "/reports/" + url.PathEscape(id) + "/status",
		route:  "/reports/{id}/status",
		body:   update,
		out:    &r,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) AssignReport(ctx context.Context, id, assignee string) (*report.Report, error) {
	if id == "" || assignee == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "report id and assignee are required")
	}
	var r report.Report
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/reports/" + url.PathEscape(id) + "/assign",
		route:  "/reports/{id}/assign",
		body:   assignRequest{AssignedTo: assignee},
		out:    &r,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UploadAttachment sends one file as multipart form field "file". The
// extension allowlist and size ceiling are checked before any bytes are sent.
func (c *Client) UploadAttachment(ctx context.Context, name string, content io.Reader, size int64) (report.Attachment, error) {
	if err := report.CheckFile(name, size); err != nil {
		return report.Attachment{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return report.Attachment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build upload")
	}
	// one byte past the ceiling is enough to detect a size lie
	n, err := io.Copy(part, io.LimitReader(content, report.MaxAttachmentSize+1))
	if err != nil {
		return report.Attachment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attachment")
	}
	if n > report.MaxAttachmentSize {
		return report.Attachment{}, report.CheckFile(name, n)
	}
	if err := mw.WriteField("size", strconv.FormatInt(n, 10)); err != nil {
		return report.Attachment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build upload")
	}
	if err := mw.Close(); err != nil {
		return report.Attachment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build upload")
	}

	var res UploadResult
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/reports/upload",
		route:       "/reports/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		out:         &res,
		auth:        true,
	})
	if err != nil {
		return report.Attachment{}, err
	}
	return report.NewAttachment(res.AttachmentRef, filepath.Base(name), n)
}

// UploadFile uploads a local file.
func (c *Client) UploadFile(ctx context.Context, path string) (report.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return report.Attachment{}, dErrors.Wrap(err, dErrors.CodeValidation, "cannot open attachment")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return report.Attachment{}, dErrors.Wrap(err, dErrors.CodeValidation, "cannot stat attachment")
	}
	if info.IsDir() {
		return report.Attachment{}, dErrors.New(dErrors.CodeValidation, path+" is a directory")
	}
	return c.UploadAttachment(ctx, path, f, info.Size())
}
