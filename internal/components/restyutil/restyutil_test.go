package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.messages[id] = contents
}

func TestDump(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-product", "TL-SG2210P")
		w.Write([]byte("<html>product page</html>"))
	}))
	t.Cleanup(server.Close)

	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New().SetBaseURL(server.URL)
	Dump(client, "website", output)

	_, err := client.R().SetHeader("x-query", "sg2210").Get("/product_1.html")
	require.NoError(t, err)
	_, err = client.R().SetFormData(map[string]string{"email": "alice"}).Post("/api/login")
	require.NoError(t, err)

	require.Len(t, output.messages, 2)
	var get, post string
	for id, contents := range output.messages {
		require.True(t, strings.HasPrefix(id, "website-"), id)
		require.True(t, strings.HasSuffix(id, ".txt"), id)
		if strings.Contains(contents, "GET ") {
			get = contents
		} else {
			post = contents
		}
	}

	require.Contains(t, get, "---- REQUEST ----")
	require.Contains(t, get, "/product_1.html")
	require.Contains(t, get, "X-Query: sg2210")
	require.Contains(t, get, "---- RESPONSE ----")
	require.Contains(t, get, "200 ")
	require.Contains(t, get, "X-Product: TL-SG2210P")
	require.Contains(t, get, "<html>product page</html>")

	require.Contains(t, post, "POST ")
	require.Contains(t, post, "email=alice")
}

func TestDumpNilOutput(t *testing.T) {
	client := resty.New()
	Dump(client, "noop", nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0o600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(dir, "stale.txt"))

	output.Write("crm-00001.txt", "exchange")
	contents, err := os.ReadFile(filepath.Join(dir, "crm-00001.txt"))
	require.NoError(t, err)
	require.Equal(t, "exchange", string(contents))
}

func TestFormatHeaders(t *testing.T) {
	require.Equal(t, "", formatHeaders(http.Header{}))
	require.Equal(t, "A: 1\nB: 2\nB: 3", formatHeaders(http.Header{"B": {"2", "3"}, "A": {"1"}}))
}
