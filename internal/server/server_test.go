package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/flashvocab/internal/model"
	"github.com/verte-zerg/flashvocab/internal/store"
	"github.com/verte-zerg/flashvocab/internal/testutil"
)

const vocabCSV = "Kanji,Meaning,Hiragana\n食べる,to eat,たべる\n飲む,to drink,のむ\n"

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "flashvocab.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	ts := httptest.NewServer(New(st, testutil.NewTestLogger(), Options{}).Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func uploadSet(t *testing.T, ts *httptest.Server, name string) int64 {
	t.Helper()
	body, contentType := multipartBody(t, "lesson.csv", vocabCSV, map[string]string{"name": name})
	resp, err := http.Post(ts.URL+"/api/vocabulary/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Message   string `json:"message"`
		SetID     int64  `json:"setId"`
		CardCount int    `json:"cardCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Vocabulary set created successfully", out.Message)
	assert.Equal(t, 2, out.CardCount)
	return out.SetID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc123", resp.Header.Get(requestIDHeader))
}

func TestUploadAndGetSet(t *testing.T) {
	ts, _ := newTestServer(t)
	id := uploadSet(t, ts, "Lesson 1")

	resp, err := http.Get(ts.URL + "/api/vocabulary/sets/" + itoa(id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail model.SetDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, "Lesson 1", detail.Name)
	assert.Equal(t, 2, detail.TotalCount)
	require.Len(t, detail.Cards, 2)
	assert.Equal(t, "食べる", detail.Cards[0].Headword)
	assert.Equal(t, "たべる", detail.Cards[0].Pronunciation)
}

func TestUploadDefaultsNameToFileName(t *testing.T) {
	ts, st := newTestServer(t)
	body, contentType := multipartBody(t, "N5 verbs.csv", vocabCSV, nil)
	resp, err := http.Post(ts.URL+"/api/vocabulary/upload", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sets, err := st.ListSets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "N5 verbs", sets[0].Name)
}

func TestUploadRejections(t *testing.T) {
	ts, _ := newTestServer(t)
	cases := []struct {
		name     string
		filename string
		content  string
	}{
		{name: "no file"},
		{name: "wrong extension", filename: "notes.txt", content: vocabCSV},
		{name: "empty sheet", filename: "empty.csv", content: "Kanji,Meaning\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tc.filename, tc.content, map[string]string{"name": "x"})
			resp, err := http.Post(ts.URL+"/api/vocabulary/upload", contentType, body)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "flashvocab.db"))
	require.NoError(t, err)
	defer st.Close()
	ts := httptest.NewServer(New(st, nil, Options{MaxUploadBytes: 64}).Handler())
	defer ts.Close()

	body, contentType := multipartBody(t, "big.csv", vocabCSV+strings.Repeat("x,y\n", 100), nil)
	resp, err := http.Post(ts.URL+"/api/vocabulary/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListUpdateDeleteSet(t *testing.T) {
	ts, _ := newTestServer(t)
	id := uploadSet(t, ts, "before")

	resp, body := doJSON(t, http.MethodPatch, ts.URL+"/api/vocabulary/sets/"+itoa(id), `{"name":"after","default_face":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "after", body["name"])
	assert.EqualValues(t, 2, body["default_face"])

	listResp, err := http.Get(ts.URL + "/api/vocabulary/sets")
	require.NoError(t, err)
	var sets []model.SetSummary
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&sets))
	listResp.Body.Close()
	require.Len(t, sets, 1)
	assert.Equal(t, 2, sets[0].CardCount)

	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/vocabulary/sets/"+itoa(id), `{"default_face":7}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodDelete, ts.URL+"/api/vocabulary/sets/"+itoa(id), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Vocabulary set deleted successfully", body["message"])

	resp, body = doJSON(t, http.MethodDelete, ts.URL+"/api/vocabulary/sets/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "not found")
}

func TestEmptyListIsArray(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/vocabulary/sets")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestLearnedAndReset(t *testing.T) {
	ts, st := newTestServer(t)
	id := uploadSet(t, ts, "set")
	detail, err := st.GetSet(context.Background(), id, true)
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodPatch, ts.URL+"/api/vocabulary/flashcards/"+itoa(detail.Cards[0].ID)+"/learned", `{"learned":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["learned"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/vocabulary/sets/"+itoa(id), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail, err = st.GetSet(context.Background(), id, false)
	require.NoError(t, err)
	assert.Len(t, detail.Cards, 1)

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/vocabulary/sets/"+itoa(id)+"/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["count"])

	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/vocabulary/flashcards/999/learned", `{"learned":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetSetIncludeAll(t *testing.T) {
	ts, st := newTestServer(t)
	id := uploadSet(t, ts, "set")
	all, err := st.GetSet(context.Background(), id, true)
	require.NoError(t, err)
	require.NoError(t, st.SetCardLearned(context.Background(), all.Cards[0].ID, true))

	for query, want := range map[string]int{"": 1, "?includeAll=true": 2} {
		resp, err := http.Get(ts.URL + "/api/vocabulary/sets/" + itoa(id) + query)
		require.NoError(t, err)
		var detail model.SetDetail
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
		resp.Body.Close()
		assert.Len(t, detail.Cards, want, query)
		assert.Equal(t, 1, detail.LearnedCount)
	}
}

func TestReorder(t *testing.T) {
	ts, st := newTestServer(t)
	a := uploadSet(t, ts, "a")
	b := uploadSet(t, ts, "b")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/vocabulary/sets/reorder", `{"orderedIds":[`+itoa(a)+`,`+itoa(b)+`]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sets, err := st.ListSets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, sets[0].ID)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/vocabulary/sets/reorder", `{"orderedIds":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "orderedIds must be an array")

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/vocabulary/sets/reorder", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/vocabulary/sets/reorder", `{"orderedIds":[999]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadPathID(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/vocabulary/sets/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid id")
}

func TestStoreFailureIs500(t *testing.T) {
	st := new(testutil.MockCardStore)
	st.On("ListSets", mock.Anything).Return(nil, errors.New("database is locked")).Once()
	ts := httptest.NewServer(New(st, testutil.NewTestLogger(), Options{}).Handler())
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/vocabulary/sets", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "database is locked", body["error"])
	st.AssertExpectations(t)
}

func TestPanicIsRecovered(t *testing.T) {
	st := new(testutil.MockCardStore)
	st.On("GetSet", mock.Anything, int64(1), false).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(model.SetDetail{}, nil)
	ts := httptest.NewServer(New(st, testutil.NewTestLogger(), Options{}).Handler())
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/vocabulary/sets/1", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", body["error"])
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/vocabulary/sets/1", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	st := new(testutil.MockCardStore)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(st, nil, Options{}).Serve(ctx, ln)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
