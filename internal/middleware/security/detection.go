package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
}

var (
	probePatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "etc/passwd", "cmd.exe",
		"wp-admin", "phpmyadmin", "admin.php", "config.php",
		"eval(", "javascript:", "<script", "union select", "base64",
		"0x",
	}
	// Scripted clients (curl, contictl) are expected on a JSON API.
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb",
		"masscan", "zgrab", "scanner", "crawler", "spider", "scraper",
	}
	unusualMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

const (
	maxURLLength    = 2048
	maxForwardedHop = 5
)

// Detector flags suspicious requests and resolves client addresses behind
// trusted proxies.
type Detector struct {
	suspicious     atomic.Int64
	trustedProxies []*net.IPNet
}

// NewDetector trusts loopback and private ranges as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("trusted proxy CIDR %s: %v", cidr, err))
		}
		d.trustedProxies = append(d.trustedProxies, network)
	}
	return d
}

// Inspect returns why r looks like a probe, or "" when it looks normal.
func (d *Detector) Inspect(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return "pattern " + p
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "agent " + a
		}
	}

	switch {
	case unusualMethods[r.Method]:
		return "method " + r.Method
	case len(r.URL.String()) > maxURLLength:
		return "long url"
	case r.Header.Get("X-Real-IP") != "" && strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxForwardedHop:
		return "forwarded chain"
	}
	return ""
}

// DetectSuspiciousRequest reports and counts requests Inspect flags.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if d.Inspect(r) == "" {
		return false
	}
	d.suspicious.Add(1)
	return true
}

// Middleware logs and counts suspicious requests. It never blocks them;
// rate limiting and routing handle the rest.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Inspect(r); reason != "" {
			d.suspicious.Add(1)
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"reason", reason,
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the connecting address, or the first valid
// forwarded address when the connection comes from a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	ip := net.ParseIP(directIP)
	if ip == nil || !d.trusted(ip) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) trusted(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}
