package probe

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

// DNSDiagnosis wraps a checker and, when an attempt fails without any
// response, appends the DNS class of the host to the error text.
type DNSDiagnosis struct {
	Inner    Checker
	Resolver *net.Resolver
}

func NewDNSDiagnosis(inner Checker) *DNSDiagnosis {
	return &DNSDiagnosis{Inner: inner}
}

func (d *DNSDiagnosis) Check(ctx context.Context, target string) domain.ProbeOutcome {
	out := d.Inner.Check(ctx, target)
	if out.Success || out.StatusCode != nil {
		return out
	}
	// the probe context may already be past its deadline
	dns := CheckDNS(context.WithoutCancel(ctx), d.Resolver, extractHost(target))
	if dns.Class != ClassResolves {
		out.Error = fmt.Sprintf("%s (dns=%s)", out.Error, dns.Class)
	}
	return out
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
