package cors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe/probetest"
)

// reflecting echoes the request Origin, optionally with credentials.
func reflecting(credentials bool) *probetest.Doer {
	return probetest.New(func(req *httpclient.Request) (*httpclient.Response, error) {
		h := []string{"Access-Control-Allow-Origin", req.Header.Get("Origin")}
		if credentials {
			h = append(h, "Access-Control-Allow-Credentials", "true")
		}
		return probetest.Respond(200, "{}", h...), nil
	})
}

func TestScan_ReflectedWithCredentialsIsCritical(t *testing.T) {
	d := New(Config{Base: attackconfig.Base{Client: reflecting(true)}})
	vulns := d.Scan(context.Background(), "http://127.0.0.1:8080/api")
	require.Len(t, vulns, len(Origins))

	v := vulns[0]
	assert.Equal(t, finding.CORS, v.Class)
	assert.Equal(t, finding.Critical, v.Severity)
	assert.Equal(t, "Origin: https://evil.com", v.Payload)
	assert.Equal(t, "Access-Control-Allow-Origin: https://evil.com\nAccess-Control-Allow-Credentials: true", v.Evidence)
	assert.Equal(t, "curl -H 'Origin: https://evil.com' -v 'http://127.0.0.1:8080/api'", v.PoC)
	assert.Contains(t, v.Description, "with credentials enabled")
}

func TestScan_ReflectedWithoutCredentialsIsMedium(t *testing.T) {
	d := New(Config{Base: attackconfig.Base{Client: reflecting(false)}, Origins: []string{"https://evil.com"}})
	vulns := d.Scan(context.Background(), "http://127.0.0.1/")
	require.Len(t, vulns, 1)
	assert.Equal(t, finding.Medium, vulns[0].Severity)
	assert.Equal(t, "CORS misconfiguration: Origin 'https://evil.com' is reflected in Access-Control-Allow-Origin header.", vulns[0].Description)
}

func TestScan_WildcardIsHigh(t *testing.T) {
	doer := probetest.Static(200, "", "Access-Control-Allow-Origin", "*")
	vulns := New(Config{Base: attackconfig.Base{Client: doer}, Origins: []string{"https://evil.com"}}).Scan(context.Background(), "http://127.0.0.1/")
	require.Len(t, vulns, 1)
	assert.Equal(t, finding.High, vulns[0].Severity)
	assert.Contains(t, vulns[0].Description, "wildcard (*)")
}

func TestScan_StrictPolicyIsClean(t *testing.T) {
	doer := probetest.Static(200, "", "Access-Control-Allow-Origin", "https://app.example.com")
	vulns := New(Config{Base: attackconfig.Base{Client: doer}}).Scan(context.Background(), "https://app.example.com/")
	assert.Empty(t, vulns)
	assert.Equal(t, len(Origins), doer.Count())
}

func TestScan_NoHeaderIsClean(t *testing.T) {
	doer := probetest.Static(200, "")
	cfg := DefaultConfig()
	cfg.Client = doer
	assert.Empty(t, New(cfg).Scan(context.Background(), "http://127.0.0.1/"))
	assert.Equal(t, len(Origins), doer.Count())
}

func TestScan_SuffixOriginProbe(t *testing.T) {
	doer := probetest.Static(200, "")
	New(Config{Base: attackconfig.Base{Client: doer}, SuffixOrigin: true}).Scan(context.Background(), "https://shop.example.co.uk/cart")

	reqs := doer.Requests()
	require.Len(t, reqs, len(Origins)+1)
	assert.Equal(t, "https://example.co.uk.evil.com", reqs[len(reqs)-1].Header.Get("Origin"))
}

func TestAssess(t *testing.T) {
	tests := []struct {
		name        string
		acao        string
		origin      string
		credentials bool
		want        finding.Severity
		ok          bool
	}{
		{"wildcard", "*", "https://evil.com", false, finding.High, true},
		{"null", "null", "null", false, finding.High, true},
		{"reflected", "https://evil.com", "https://evil.com", false, finding.Medium, true},
		{"reflected with credentials", "https://evil.com", "https://evil.com", true, finding.Critical, true},
		{"wildcard with credentials", "*", "https://evil.com", true, finding.Critical, true},
		{"fixed origin", "https://app.example.com", "https://evil.com", true, "", false},
		{"origin as prefix of another host", "https://evil.com.victim.com", "https://evil.com", true, "", false},
		{"origin with extra path", "https://evil.com/x", "https://evil.com", false, "", false},
		{"reflected different case", "HTTPS://EVIL.COM", "https://evil.com", false, finding.Medium, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Assess(tt.acao, tt.origin, tt.credentials)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuffixOrigin(t *testing.T) {
	assert.Equal(t, "https://example.com.evil.com", SuffixOrigin("https://www.example.com/a"))
	assert.Empty(t, SuffixOrigin("http://10.0.0.1/"))
	assert.Empty(t, SuffixOrigin("http://[::1]:8080/"))
}
