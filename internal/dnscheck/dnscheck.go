// Package dnscheck inspects the DNS posture of a sender domain: the
// records receiving providers consult before accepting bulk mail.
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

var ErrInvalidDomain = errors.New("invalid domain name")

// domainRegex validates domain name format (RFC 1035)
var domainRegex = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// ValidateDomain checks if a domain name is well formed
func ValidateDomain(domain string) error {
	if domain == "" || len(domain) > 253 {
		return ErrInvalidDomain
	}
	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// Record statuses
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusMissing = "missing"
)

// Record is the outcome of one DNS lookup
type Record struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Value  string `json:"value,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Report holds the full posture of a sender domain
type Report struct {
	Domain  string   `json:"domain"`
	Records []Record `json:"records"`
	Healthy bool     `json:"healthy"`
}

// CheckSender inspects the records that matter for a sending domain: MX,
// SPF, DMARC, and DKIM when a selector is known. Healthy means every
// lookup succeeded and nothing essential is missing.
func CheckSender(ctx context.Context, domain, dkimSelector string) (*Report, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}

	report := &Report{Domain: domain}
	report.Records = append(report.Records, checkMX(ctx, domain))
	report.Records = append(report.Records, checkSPF(ctx, domain))
	if dkimSelector != "" {
		report.Records = append(report.Records, checkDKIM(ctx, domain, dkimSelector))
	}
	report.Records = append(report.Records, checkDMARC(ctx, domain))

	report.Healthy = true
	for _, rec := range report.Records {
		if rec.Status == StatusError || rec.Status == StatusMissing {
			report.Healthy = false
		}
	}
	return report, nil
}

func checkMX(ctx context.Context, domain string) Record {
	rec := Record{Name: "MX"}

	mxs, err := net.DefaultResolver.LookupMX(ctx, domain)
	if err != nil {
		return lookupFailure(rec, err, "no MX records found")
	}
	if len(mxs) == 0 {
		rec.Status = StatusMissing
		rec.Detail = "no MX records found"
		return rec
	}

	var hosts []string
	for _, mx := range mxs {
		hosts = append(hosts, fmt.Sprintf("%s (%d)", strings.TrimSuffix(mx.Host, "."), mx.Pref))
	}
	rec.Status = StatusOK
	rec.Value = strings.Join(hosts, ", ")
	return rec
}

func checkSPF(ctx context.Context, domain string) Record {
	rec := Record{Name: "SPF"}

	txts, err := net.DefaultResolver.LookupTXT(ctx, domain)
	if err != nil {
		return lookupFailure(rec, err, "no SPF record published")
	}
	for _, txt := range txts {
		if strings.HasPrefix(txt, "v=spf1") {
			return classifySPF(txt)
		}
	}
	rec.Status = StatusMissing
	rec.Detail = "no SPF record published"
	return rec
}

func checkDKIM(ctx context.Context, domain, selector string) Record {
	rec := Record{Name: "DKIM (" + selector + ")"}

	txts, err := net.DefaultResolver.LookupTXT(ctx, selector+"._domainkey."+domain)
	if err != nil {
		return lookupFailure(rec, err, "no key published for selector "+selector)
	}
	// long keys arrive as split TXT strings
	return classifyDKIM(selector, strings.Join(txts, ""))
}

func checkDMARC(ctx context.Context, domain string) Record {
	rec := Record{Name: "DMARC"}

	txts, err := net.DefaultResolver.LookupTXT(ctx, "_dmarc."+domain)
	if err != nil {
		return lookupFailure(rec, err, "no DMARC policy published")
	}
	return classifyDMARC(strings.Join(txts, ""))
}

// classifySPF grades a published SPF record
func classifySPF(txt string) Record {
	rec := Record{Name: "SPF", Status: StatusOK, Value: txt}
	switch {
	case strings.Contains(txt, "+all"):
		rec.Status = StatusWarning
		rec.Detail = "policy allows any sender (+all)"
	case strings.Contains(txt, "-all"):
		rec.Detail = "strict policy (-all)"
	case strings.Contains(txt, "~all"):
		rec.Detail = "soft fail policy (~all)"
	}
	return rec
}

// classifyDKIM grades the TXT record behind a DKIM selector
func classifyDKIM(selector, txt string) Record {
	rec := Record{Name: "DKIM (" + selector + ")", Value: truncate(txt, 100)}
	if !strings.Contains(txt, "v=DKIM1") {
		rec.Status = StatusWarning
		rec.Detail = "TXT record is not a DKIM key"
		return rec
	}
	if !strings.Contains(txt, "p=") {
		rec.Status = StatusWarning
		rec.Detail = "key record has no public key (p=)"
		return rec
	}
	rec.Status = StatusOK
	return rec
}

// classifyDMARC grades a published DMARC policy
func classifyDMARC(txt string) Record {
	rec := Record{Name: "DMARC", Value: txt}
	if !strings.HasPrefix(txt, "v=DMARC1") {
		rec.Status = StatusWarning
		rec.Detail = "TXT record is not a DMARC policy"
		return rec
	}
	switch {
	case strings.Contains(txt, "p=reject"):
		rec.Status = StatusOK
		rec.Detail = "reject policy"
	case strings.Contains(txt, "p=quarantine"):
		rec.Status = StatusOK
		rec.Detail = "quarantine policy"
	case strings.Contains(txt, "p=none"):
		rec.Status = StatusWarning
		rec.Detail = "monitoring only (p=none)"
	default:
		rec.Status = StatusOK
	}
	return rec
}

func lookupFailure(rec Record, err error, missingDetail string) Record {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		rec.Status = StatusMissing
		rec.Detail = missingDetail
		return rec
	}
	rec.Status = StatusError
	rec.Detail = fmt.Sprintf("lookup failed: %v", err)
	return rec
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
