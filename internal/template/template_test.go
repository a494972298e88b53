package template

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/omr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "is_in_seal": false,
  "card_type": 1,
  "pages": [{
    "card_columns": 1,
    "model_size": {"w": 1000, "h": 1400},
    "model_points": [
      {"point_type": 1, "coordinate": {"x": 50, "y": 50, "w": 30, "h": 30}},
      {"point_type": 1, "coordinate": {"x": 920, "y": 50, "w": 30, "h": 30}},
      {"point_type": 1, "coordinate": {"x": 50.6, "y": 700, "w": 30, "h": 30}},
      {"point_type": 1, "coordinate": {"x": 920, "y": 700, "w": 30, "h": 30}},
      {"point_type": 1, "coordinate": {"x": 50, "y": 1320, "w": 30, "h": 30}},
      {"point_type": 1, "coordinate": {"x": 920, "y": 1320, "w": 30, "h": 30}}
    ],
    "page_number_points": [
      {"fill_rate": 0.9, "coordinate": {"x": 200, "y": 60, "w": 20, "h": 20}},
      {"fill_rate": 0.0, "coordinate": {"x": 240, "y": 60, "w": 20, "h": 20}}
    ],
    "recognizes": [
      {"rec_id": "q1", "rec_type": 7, "options": [
        {"value": "A", "coordinate": {"x": 100, "y": 300, "w": 40, "h": 20}},
        {"value": 2, "coordinate": {"x": 150, "y": 300, "w": 40, "h": 20}},
        {"value": 2.5, "coordinate": {"x": 200, "y": 300, "w": 40, "h": 20}},
        {"coordinate": {"x": 250, "y": 300, "w": 40, "h": 20}}
      ]}
    ]
  }]
}`

func TestParseJSON_DerivesFiducials(t *testing.T) {
	scan, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	require.Len(t, scan.Pages, 1)

	f := scan.Pages[0].Fiducials()
	assert.Equal(t, utils.NewRect(50, 50, 30, 30), f[0])
	assert.Equal(t, utils.NewRect(920, 50, 30, 30), f[1])
	assert.Equal(t, utils.NewRect(50, 1320, 30, 30), f[2], "one column uses model point 4 as bottom-left")
	assert.Equal(t, utils.NewRect(920, 1320, 30, 30), f[3])

	opts := scan.Pages[0].Recognizes[0].Options
	require.NotNil(t, opts[0].Value)
	assert.Equal(t, KindString, opts[0].Value.Kind)
	assert.Equal(t, KindInt, opts[1].Value.Kind)
	assert.Equal(t, KindFloat, opts[2].Value.Kind)
	assert.Nil(t, opts[3].Value)
	assert.Equal(t, []float64{0.9, 0}, scan.Pages[0].PageNumberRates())
}

func TestDeriveFiducials_Columns(t *testing.T) {
	points := make([]ModelPoint, 12)
	for i := range points {
		points[i] = ModelPoint{Coordinate: utils.NewRect(i*10, i*100, 5, 5)}
	}
	cases := []struct {
		columns int
		tr, bl  int
	}{
		{1, 1, 4},
		{2, 2, 6},
		{3, 3, 8},
		{4, 4, 10},
	}
	for _, tc := range cases {
		p := Page{CardColumns: tc.columns, ModelPoints: points}
		four, err := p.deriveFiducials(0)
		require.NoError(t, err)
		assert.Equal(t, points[0], four[0])
		assert.Equal(t, points[tc.tr], four[1])
		assert.Equal(t, points[tc.bl], four[2])
		assert.Equal(t, points[11], four[3])
	}
}

func TestPrepare_Errors(t *testing.T) {
	base := func() Page {
		var scan Scan
		require.NoError(t, json.Unmarshal([]byte(sampleJSON), &scan))
		return scan.Pages[0]
	}

	cases := []struct {
		name   string
		mutate func(p *Page)
		field  string
	}{
		{"too few fiducials", func(p *Page) { p.ModelPoints = p.ModelPoints[:3] }, "model_points"},
		{"unknown columns", func(p *Page) { p.CardColumns = 7 }, "card_columns"},
		{"columns beyond points", func(p *Page) { p.CardColumns = 4 }, "model_points"},
		{"empty size", func(p *Page) { p.ModelSize = Size{} }, "model_size"},
		{"bad fill rate", func(p *Page) { p.PageNumberPoints[0].FillRate = 1.5 }, "page_number_points"},
		{"duplicate rec id", func(p *Page) { p.Recognizes = append(p.Recognizes, p.Recognizes[0]) }, "recognizes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base()
			tc.mutate(&p)
			scan := Scan{Pages: []Page{p}}
			err := scan.Prepare()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, 0, ve.Page)
		})
	}

	var empty Scan
	var ve *ValidationError
	require.ErrorAs(t, empty.Prepare(), &ve)
	assert.Equal(t, -1, ve.Page)
}

func TestPrepare_ExplicitFiducialsWin(t *testing.T) {
	var scan Scan
	require.NoError(t, json.Unmarshal([]byte(sampleJSON), &scan))
	explicit := [4]ModelPoint{
		{Coordinate: utils.NewRect(1, 1, 10, 10)},
		{Coordinate: utils.NewRect(900, 1, 10, 10)},
		{Coordinate: utils.NewRect(1, 1300, 10, 10)},
		{Coordinate: utils.NewRect(900, 1300, 10, 10)},
	}
	scan.Pages[0].ModelPoints4 = &explicit
	scan.Pages[0].CardColumns = 99
	require.NoError(t, scan.Prepare())
	assert.Equal(t, utils.NewRect(900, 1, 10, 10), scan.Pages[0].Fiducials()[1])
}

func TestLoadYAML(t *testing.T) {
	doc := `
pages:
  - card_columns: 1
    model_size: {w: 100, h: 140}
    model_points:
      - coordinate: {x: 5, y: 5, w: 4, h: 4}
      - coordinate: {x: 90, y: 5, w: 4, h: 4}
      - coordinate: {x: 5, y: 70, w: 4, h: 4}
      - coordinate: {x: 90, y: 70, w: 4, h: 4}
      - coordinate: {x: 5.5, y: 130, w: 4, h: 4}
      - coordinate: {x: 90, y: 130, w: 4, h: 4}
    page_number_points: []
    recognizes:
      - rec_id: name
        rec_type: 5
        options:
          - value: 12
            coordinate: {x: 10, y: 10, w: 50, h: 20}
`
	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	scan, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, utils.NewRect(5, 130, 4, 4), scan.Pages[0].Fiducials()[2])
	v := scan.Pages[0].Recognizes[0].Options[0].Value
	require.NotNil(t, v)
	assert.Equal(t, KindInt, v.Kind)
	assert.Equal(t, "12", v.String())

	_, err = Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestValueJSON(t *testing.T) {
	for _, v := range []*Value{StringValue("B"), IntValue(3), FloatValue(0.25)} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var back Value
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, *v, back)
	}
	var bad Value
	require.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestRecTypes(t *testing.T) {
	rt := DefaultRecTypes()
	assert.Equal(t, KindFill, rt.Kind(1))
	assert.Equal(t, KindFill, rt.Kind(7))
	assert.Equal(t, KindFill, rt.Kind(8))
	assert.Equal(t, KindExamNumber, rt.Kind(9))
	assert.Equal(t, KindTick, rt.Kind(2))
	assert.Equal(t, KindNumber, rt.Kind(3))
	assert.Equal(t, KindQRCode, rt.Kind(4))
	assert.Equal(t, KindBarcode, rt.Kind(5))
	assert.Equal(t, KindCoordinate, rt.Kind(6))
	assert.Equal(t, KindUnknown, rt.Kind(42))
	assert.True(t, KindExamNumber.IsFill())
	assert.False(t, KindBarcode.IsFill())
	assert.Equal(t, "qrcode", KindQRCode.String())
}
