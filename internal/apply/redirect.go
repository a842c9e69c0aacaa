package apply

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/failure"
	"github.com/JakeFAU/jobswipe/internal/jobs"
)

var applyLink = XPath(`//a[@href][contains(translate(normalize-space(.), "APLY", "aply"), "apply")]`)

// GitHubRedirect follows the "Apply" link on a GitHub listing page and runs
// the workflow for wherever it points. It follows one hop only.
type GitHubRedirect struct{}

// Kind implements Workflow.
func (GitHubRedirect) Kind() jobs.PortalKind { return jobs.PortalGitHubRedirect }

// Run implements Workflow.
func (GitHubRedirect) Run(ctx context.Context, env *Env) error {
	el, ok, err := env.Page.Find(ctx, applyLink)
	if err != nil {
		return fmt.Errorf("find apply link: %w", err)
	}
	if !ok {
		return failure.ElementMissing("apply_link")
	}
	href, ok, err := env.Page.Attr(ctx, el, "href")
	if err != nil {
		return fmt.Errorf("read apply link: %w", err)
	}
	if !ok || strings.TrimSpace(href) == "" {
		return failure.ElementMissing("apply_link")
	}
	target, err := resolveHref(env.JobURL, href)
	if err != nil {
		return failure.New(jobs.ErrorUnknown, "apply_link", "unusable apply link", err)
	}
	kind := Classify(target)
	if kind == jobs.PortalGitHubRedirect {
		return failure.New(jobs.ErrorUnknown, "apply_link", target, errRedirectLoop)
	}
	env.Logger.Info("following apply link", zap.String("target", target), zap.String("portal", string(kind)))
	if err := env.Page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := env.settle(ctx); err != nil {
		return err
	}
	next := env.workflow(kind)
	return next.Run(ctx, env)
}

func resolveHref(base, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if b, err := url.Parse(base); err == nil && b.IsAbs() {
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("apply link %q is not http(s)", href)
	}
	return ref.String(), nil
}
