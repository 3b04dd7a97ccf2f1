package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// StubExitEnv selects the stub ffmpeg exit status.
const StubExitEnv = "MXF2PROXY_STUB_EXIT"

const stubFFmpeg = `#!/bin/sh
for last; do :; done
echo "stub ffmpeg $*"
code="${` + StubExitEnv + `:-0}"
if [ "$code" = "0" ]; then
	printf 'proxy' > "$last"
fi
exit "$code"
`

const stubFFprobe = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","codec_name":"mpeg2video","width":%d,"height":%d}],"format":{"format_name":"mxf"}}
JSON
`

// WriteStubEncoder writes ffmpeg and ffprobe stand-ins into dir and returns
// their paths.
func WriteStubEncoder(t testing.TB, dir string, width, height int) (string, string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	ffmpeg := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte(stubFFmpeg), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	ffprobe := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffprobe, []byte(fmt.Sprintf(stubFFprobe, width, height)), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}
	return ffmpeg, ffprobe
}
