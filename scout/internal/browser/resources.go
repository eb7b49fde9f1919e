package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// defaultBlockedDomains aborts ad and tracker requests. Substring match
// against the full request URL.
var defaultBlockedDomains = []string{
	"googletagmanager.com",
	"google-analytics.com",
	"googlesyndication.com",
	"doubleclick.net",
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"ads",
	"analytics",
	"tracking",
}

// applyBlocking sets up request interception that aborts blocked
// resource types and blocked-domain URLs.
func applyBlocking(page *rod.Page, types, domains []string) {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()

	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) ||
			blockedDomain(domains, ctx.Request.URL().String()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)

	// Map CDP resource types to config names.
	switch lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}

	return blockSet[lower]
}

func blockedDomain(domains []string, url string) bool {
	for _, d := range domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}
