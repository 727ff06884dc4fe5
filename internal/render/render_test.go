package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/catalog"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/host/local"
	"github.com/joeblew999/plat-mapcraft/internal/label"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fakeWMS(t *testing.T, hits *atomic.Int32) *httptest.Server {
	body := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("REQUEST") {
		case "GetCapabilities":
			w.Header().Set("Content-Type", "text/xml")
			w.Write([]byte("<WMS_Capabilities/>"))
		case "GetMap":
			w.Header().Set("Content-Type", "image/png")
			w.Write(body)
		default:
			http.Error(w, "bad request", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testCatalog(t *testing.T, endpoint string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(`
regions:
  - name: Testland
    copyright: Test GeoBasis (2026)
    scales:
      25000: {url: "` + endpoint + `?", layer: dtk25, title: Test DTK25}
tiles:
  satellite: {title: Sat, url: "https://example.test/{z}/{x}/{y}", zmin: 0, zmax: 19, crs: "EPSG:3857", copyright: Sat}
  osm: {title: OSM, url: "https://example.test/{z}/{x}/{y}.png", zmin: 0, zmax: 19, crs: "EPSG:3857", copyright: OSM}
`))
	require.NoError(t, err)
	return c
}

func TestGetMapURL(t *testing.T) {
	d := basemap.Descriptor{Endpoint: "https://geo4.service24.rlp.de/wms/rp_dtk25.fcgi?", RemoteLayer: "rp_dtk25", CRS: "EPSG:25832"}
	u := GetMapURL(d, orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3.5, 4}}, 100, 80)

	assert.True(t, strings.HasPrefix(u, "https://geo4.service24.rlp.de/wms/rp_dtk25.fcgi?"))
	assert.Contains(t, u, "BBOX=1%2C2%2C3.5%2C4")
	assert.Contains(t, u, "LAYERS=rp_dtk25")
	assert.Contains(t, u, "CRS=EPSG%3A25832")
	assert.Contains(t, u, "WIDTH=100")
	assert.Equal(t, 1, strings.Count(u, "?"))

	assert.Equal(t, "http://x/wms?a=1&REQUEST=GetCapabilities&SERVICE=WMS", CapabilitiesURL("http://x/wms?a=1"))
}

func TestFetcherCachesGetMap(t *testing.T) {
	var hits atomic.Int32
	srv := fakeWMS(t, &hits)
	f, err := NewFetcher(time.Second, nil)
	require.NoError(t, err)

	d := basemap.Descriptor{Provider: basemap.ProviderWMS, Endpoint: srv.URL, RemoteLayer: "dtk25", CRS: "EPSG:25832"}
	bbox := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}

	data, err := f.GetMap(context.Background(), d, bbox, 4, 4)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	f.cache.Wait()
	_, err = f.GetMap(context.Background(), d, bbox, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, f.Probe(context.Background(), d))
	assert.NoError(t, f.Probe(context.Background(), basemap.Descriptor{Provider: basemap.ProviderXYZ}))

	_, err = f.GetMap(context.Background(), basemap.Descriptor{Provider: basemap.ProviderXYZ}, bbox, 4, 4)
	assert.Error(t, err)
}

func TestFetcherRejectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	f, err := NewFetcher(time.Second, nil)
	require.NoError(t, err)

	err = f.Probe(context.Background(), basemap.Descriptor{Provider: basemap.ProviderWMS, Endpoint: srv.URL})
	assert.ErrorContains(t, err, "503")
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "25.000", groupThousands(25000))
	assert.Equal(t, "10.000", groupThousands(10000))
	assert.Equal(t, "999", groupThousands(999))
}

const turbines = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[400000,5500000]}},
 {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[401000,5501000]}}]}`

const boundary = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[399500,5499500],[401500,5499500],[401500,5501500],[399500,5501500],[399500,5499500]]]}}]}`

func composeSheet(t *testing.T, format composer.Format) (*composer.Result, *atomic.Int32) {
	t.Helper()
	dir := t.TempDir()
	wea := filepath.Join(dir, "wea.geojson")
	area := filepath.Join(dir, "boundary.geojson")
	require.NoError(t, os.WriteFile(wea, []byte(turbines), 0o644))
	require.NoError(t, os.WriteFile(area, []byte(boundary), 0o644))

	var hits atomic.Int32
	srv := fakeWMS(t, &hits)
	fetcher, err := NewFetcher(time.Second, nil)
	require.NoError(t, err)

	host := local.New(local.WithProber(fetcher.Probe))
	c := composer.New(host, NewExporter(host, WithFetcher(fetcher)), basemap.NewResolver(testCatalog(t, srv.URL)))

	res, err := c.Run(context.Background(), composer.Input{
		ProjectName: "Probe",
		Region:      "Testland",
		Scale:       25000,
		Paper:       layout.A4,
		Basemap:     basemap.Topographic,
		Format:      format,
		OutputDir:   filepath.Join(dir, "out"),
		DPI:         36,
		Creator:     "tester",
		Layers: []composer.ContentLayer{
			{Role: legend.TurbineLayout, Path: wea},
			{Role: legend.SiteBoundary, Path: area},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, host.Layers())
	return res, &hits
}

func TestExportPDF(t *testing.T) {
	res, hits := composeSheet(t, composer.FormatPDF)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.True(t, strings.HasSuffix(res.OutputPath, ".pdf"))
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}

func TestExportImage(t *testing.T) {
	res, _ := composeSheet(t, composer.FormatPNG)

	f, err := os.Open(res.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	// A4 landscape at 36 dpi
	assert.Equal(t, 421, img.Bounds().Dx())
	assert.Equal(t, 298, img.Bounds().Dy())

	// the map frame border is drawn
	frameX := 8 * 36 / 25.4
	frame := img.At(int(frameX), 100)
	r, g, b, _ := frame.RGBA()
	assert.Less(t, r+g+b, uint32(3*0x8000), "frame color %v", color.RGBAModel.Convert(frame))
}

func TestPDFLabelWidthsMatchMeasurer(t *testing.T) {
	c, err := newPDFCanvas(layout.Page{Width: 297, Height: 210})
	require.NoError(t, err)
	m, err := label.NewFaceMeasurer(300)
	require.NoError(t, err)

	for _, text := range []string{"Übersichtskarte", "Windpark Nordheide", "Hintergrund: ©GeoBasis-DE / LGLN (2026)"} {
		for _, size := range []int{8, 14, 20} {
			c.pdf.SetFont(labelFont, "", float64(size))
			printed := c.pdf.GetStringWidth(text)
			measured := m.Width(text, size) * 25.4 / 300
			assert.InDelta(t, printed, measured, printed*0.03, "%q at %dpt", text, size)
		}
	}
}

func TestExportRejectsEmptyPlan(t *testing.T) {
	e := NewExporter(nil)
	assert.Error(t, e.ExportPDF(context.Background(), &composer.Plan{}, filepath.Join(t.TempDir(), "x.pdf")))
}
