package lfi

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe/probetest"
)

const passwd = "root:x:0:0:root:/root:/bin/bash\ndaemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin\n"

func TestDetector_TraversalReadsPasswd(t *testing.T) {
	d := probetest.New(func(req *httpclient.Request) (*httpclient.Response, error) {
		u, _ := url.Parse(req.URL)
		if strings.HasSuffix(u.Query().Get("file"), "etc/passwd") {
			return probetest.Respond(200, passwd), nil
		}
		return probetest.Respond(200, "<h1>Not found</h1>"), nil
	})

	vulns := New(Config{Base: attackconfig.Base{Client: d}}).Scan(context.Background(), "http://t/view?file=about.txt")
	require.Len(t, vulns, 3)
	for _, v := range vulns {
		assert.Equal(t, finding.LFI, v.Class)
		assert.Equal(t, finding.High, v.Severity)
		assert.Equal(t, "file", v.Parameter)
		assert.True(t, strings.HasPrefix(v.Evidence, "[/etc/passwd] root:x:0:0"), v.Evidence)
	}
	assert.Equal(t, "Local File Inclusion (LFI) detected using Basic path traversal. The application may allow reading arbitrary files.", vulns[0].Description)
}

func TestDetector_WinIni(t *testing.T) {
	d := probetest.Static(200, "; for 16-bit app support\n[fonts]\n[extensions]\n")
	vulns := New(Config{Base: attackconfig.Base{Client: d}, Params: []string{"page"}}).Scan(context.Background(), "http://t/")
	require.Len(t, vulns, 1)
	assert.Equal(t, "../../../windows/win.ini", vulns[0].Payload)
	assert.Contains(t, vulns[0].Evidence, "[win.ini]")
}

func TestDetector_CancelledStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := probetest.Static(200, passwd)
	assert.Empty(t, New(Config{Base: attackconfig.Base{Client: d}}).Scan(ctx, "http://t/?file=a"))
	assert.Zero(t, d.Count())
}

func TestIdentifyFile(t *testing.T) {
	assert.Equal(t, FilePasswd, IdentifyFile(passwd))
	assert.Equal(t, FileWinIni, IdentifyFile("[fonts]\n[extensions]"))
	assert.Equal(t, FileUnknown, IdentifyFile("root: directory"))
}
