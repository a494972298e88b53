package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/testutil"
	"github.com/MeKo-Tech/omr/internal/utils"
)

func TestRecognizeSecond(t *testing.T) {
	e := newTestEngine(t, 1)
	page := &e.Scan().Pages[0]
	b64, err := utils.EncodeBase64JPEG(testutil.RenderPage(page, testutil.Marks{"q1": {2}, "q2": {1, 3}}), 95)
	require.NoError(t, err)

	in := SecondInput{
		TaskID: "second",
		Pages: []SecondPage{
			{Recognizes: page.Recognizes},
			{Recognizes: []template.Recognition{{RecID: "orphan", RecType: 7, Options: page.Recognizes[0].Options}}},
		},
		Images: []string{b64},
	}
	out, err := e.RecognizeSecond(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "second", out.TaskID)
	assert.Equal(t, CodePartial, out.Code)
	require.Len(t, out.Pages, 2)
	assert.True(t, out.Pages[0].HasPage)
	assert.Equal(t, []int{0, 0, 1, 0}, values(t, out.Pages[0], 0))
	assert.Equal(t, []int{0, 1, 0, 1}, values(t, out.Pages[0], 1))

	assert.False(t, out.Pages[1].HasPage)
	assert.Nil(t, out.Pages[1].Recognizes[0].RecOptions[0].Value)

	require.Len(t, out.Images, 1)
	assert.Equal(t, StatusMatched, out.Images[0].Code)
	assert.Equal(t, testutil.SheetW, out.Images[0].W)
}

func TestRecognizeSecond_BadImage(t *testing.T) {
	e := newTestEngine(t, 1)
	out, err := e.RecognizeSecond(context.Background(), SecondInput{
		Pages:  []SecondPage{{Recognizes: e.Scan().Pages[0].Recognizes}},
		Images: []string{"@@not-base64@@"},
	})
	require.NoError(t, err)
	assert.Equal(t, CodeNoPages, out.Code)
	assert.Equal(t, StatusUndecodable, out.Images[0].Code)
	assert.False(t, out.Pages[0].HasPage)

	_, err = e.RecognizeSecond(context.Background(), SecondInput{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}
