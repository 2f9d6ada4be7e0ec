package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/gaiaoffline/internal/catalog"
)

const sampleChunk = `# comment one
# comment two
source_id,ra,dec,phot_g_mean_flux,phot_bp_mean_flux,extra
1,45.0,6.0,50000,null,x
2,45.1,6.1,,12.5,y
3,45.2,6.2,NaN,7,z
`

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestClient(opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{WithRateLimit(1000)}, opts...)...)
}

func TestFetchGzip(t *testing.T) {
	payload := gzipBytes(t, sampleChunk)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Write(payload)
	}))
	defer srv.Close()

	rc, err := newTestClient().Fetch(context.Background(), srv.URL+"/chunk.csv.gz")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, sampleChunk, string(got))
}

func TestFetchPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleChunk)
	}))
	defer srv.Close()

	rc, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, sampleChunk, string(got))
}

func TestFetchCorruptGzip(t *testing.T) {
	payload := gzipBytes(t, sampleChunk)
	payload = payload[:len(payload)-6]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	rc, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rc.Close()

	_, err = io.ReadAll(rc)
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), srv.URL+"/missing.csv.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsRetrievalError(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Error(), "/missing.csv.gz")
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetrievalError(err))
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient().Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestListSources(t *testing.T) {
	listing := `<html><body><pre>
<a href="../">../</a>
<a href="_MD5SUM.txt">_MD5SUM.txt</a>
<a href="GaiaSource_000000-003111.csv.gz">GaiaSource_000000-003111.csv.gz</a>
<a href="GaiaSource_003112-005263.csv.gz">GaiaSource_003112-005263.csv.gz</a>
<a href="https://mirror.example.org/GaiaSource_005264-006601.csv.gz">mirror</a>
<a href="GaiaSource_000000-003111.csv.gz">again</a>
</pre></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, listing)
	}))
	defer srv.Close()

	sources, err := newTestClient().ListSources(context.Background(), srv.URL+"/gaia_source/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/gaia_source/GaiaSource_000000-003111.csv.gz",
		srv.URL + "/gaia_source/GaiaSource_003112-005263.csv.gz",
		"https://mirror.example.org/GaiaSource_005264-006601.csv.gz",
		srv.URL + "/gaia_source/GaiaSource_000000-003111.csv.gz",
	}, sources)
}

func TestListSourcesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>nothing here</body></html>")
	}))
	defer srv.Close()

	sources, err := newTestClient().ListSources(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestChunkReader(t *testing.T) {
	want := []string{"source_id", "ra", "dec", "parallax", "phot_g_mean_flux", "phot_bp_mean_flux"}
	cr, err := NewChunkReader(strings.NewReader(sampleChunk), 2, want)
	require.NoError(t, err)

	// parallax is absent from the header, extra is not requested
	assert.Equal(t, []string{"source_id", "ra", "dec", "phot_g_mean_flux", "phot_bp_mean_flux"}, cr.Columns())
	assert.True(t, cr.Has(catalog.ColumnGFlux))
	assert.False(t, cr.Has("parallax"))

	var rows []catalog.Source
	for {
		src, err := cr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, src)
	}
	require.Len(t, rows, 3)

	assert.Equal(t, int64(1), rows[0].SourceID)
	assert.Equal(t, 45.0, rows[0].RA)
	assert.True(t, rows[0].GFlux().Valid)
	assert.Equal(t, 50000.0, rows[0].GFlux().Float64)
	assert.False(t, rows[0].Phot[catalog.BandBP].Flux.Valid)

	assert.False(t, rows[1].GFlux().Valid, "empty field is null")
	assert.Equal(t, 12.5, rows[1].Phot[catalog.BandBP].Flux.Float64)
	assert.False(t, rows[2].GFlux().Valid, "NaN is null")
}

func TestChunkReaderShortPreamble(t *testing.T) {
	_, err := NewChunkReader(strings.NewReader("a\nb\n"), 5, []string{"ra"})
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestChunkReaderMissingHeader(t *testing.T) {
	_, err := NewChunkReader(strings.NewReader("# only\n"), 1, []string{"ra"})
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestChunkReaderBadValue(t *testing.T) {
	cr, err := NewChunkReader(strings.NewReader("source_id,ra\n1,north\n"), 0, []string{"source_id", "ra"})
	require.NoError(t, err)

	_, err = cr.Next()
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestChunkReaderMissingPosition(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"empty ra", "1,,6.0,50000"},
		{"null dec", "1,45.0,null,50000"},
		{"empty source_id", ",45.0,6.0,50000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "source_id,ra,dec,phot_g_mean_flux\n" + tt.row + "\n"
			cr, err := NewChunkReader(strings.NewReader(data), 0, []string{"source_id", "ra", "dec", "phot_g_mean_flux"})
			require.NoError(t, err)

			_, err = cr.Next()
			assert.ErrorIs(t, err, ErrInvalidChunk)
		})
	}
}

func TestChunkReaderShortRow(t *testing.T) {
	cr, err := NewChunkReader(strings.NewReader("source_id,ra,dec\n1,45.0\n"), 0, []string{"source_id", "ra", "dec"})
	require.NoError(t, err)

	_, err = cr.Next()
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestChunkReaderUnknownColumn(t *testing.T) {
	_, err := NewChunkReader(strings.NewReader("ra,bogus\n1,2\n"), 0, []string{"ra", "bogus"})
	assert.ErrorIs(t, err, catalog.ErrUnknownColumn)
}
