package groundwater

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/couchcryptid/groundwater-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePDF = []byte("%PDF-1.4\n%fake\n")

func pdfHandler(disposition string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if disposition != "" {
			w.Header().Set("Content-Disposition", disposition)
		}
		_, _ = w.Write(fakePDF)
	}
}

func TestExportPolicyPDF(t *testing.T) {
	svc, _ := newTestService(t, authedStore(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/policy/export-pdf", r.URL.Path)
		assert.Equal(t, "iv 1/2", r.URL.Query().Get("intervention_id"))
		pdfHandler("")(w, r)
	}))

	doc, err := svc.ExportPolicyPDF(context.Background(), "iv 1/2")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicyReportName, doc.Filename)
	assert.Equal(t, fakePDF, doc.Data)
}

func TestLocationReportPDF(t *testing.T) {
	svc, _ := newTestService(t, authedStore(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"power":2`)
		pdfHandler(`attachment; filename="report_30.9_75.8.pdf"`)(w, r)
	}))

	doc, err := svc.LocationReportPDF(context.Background(), domain.LocationRequest{Latitude: 30.9, Longitude: 75.8, MonthsAhead: 6, K: 5})
	require.NoError(t, err)
	assert.Equal(t, "report_30.9_75.8.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
}

func TestDownload_UnexpectedContent(t *testing.T) {
	long := strings.Repeat("x", 500)
	svc, _ := newTestService(t, authedStore(), jsonHandler(http.StatusOK, `{"note":"`+long+`"}`))

	_, err := svc.LocationReportPDF(context.Background(), domain.LocationRequest{})

	var uce *UnexpectedContentError
	require.ErrorAs(t, err, &uce)
	assert.Equal(t, "application/json", uce.ContentType)
	assert.Len(t, uce.Snippet, 300)
	assert.True(t, strings.HasPrefix(err.Error(), "unexpected response (content-type=application/json): {\"note\""))
}

func TestDownload_Errors(t *testing.T) {
	t.Run("detail", func(t *testing.T) {
		svc, _ := newTestService(t, authedStore(), jsonHandler(http.StatusNotFound, `{"detail":"Intervention not found"}`))
		_, err := svc.ExportPolicyPDF(context.Background(), "missing")
		require.EqualError(t, err, "Intervention not found")
	})

	t.Run("fallback", func(t *testing.T) {
		svc, _ := newTestService(t, authedStore(), jsonHandler(http.StatusInternalServerError, `{}`))
		_, err := svc.LocationReportPDF(context.Background(), domain.LocationRequest{})
		require.EqualError(t, err, "failed to download report")
	})
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{name: "empty", disposition: "", want: "default.pdf"},
		{name: "quoted", disposition: `attachment; filename="a b.pdf"`, want: "a b.pdf"},
		{name: "bare", disposition: `attachment; filename=plain.pdf`, want: "plain.pdf"},
		{name: "lenient", disposition: `attachment;; filename=odd.pdf`, want: "odd.pdf"},
		{name: "path stripped", disposition: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{name: "windows path", disposition: `attachment; filename="C:\\tmp\\r.pdf"`, want: "r.pdf"},
		{name: "no filename", disposition: `inline`, want: "default.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attachmentName(tt.disposition, "default.pdf"))
		})
	}
}
