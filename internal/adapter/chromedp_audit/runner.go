// Package chromedp_audit measures page performance in a local headless Chrome.
package chromedp_audit

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const mobileUserAgent = `Mozilla/5.0 (Linux; Android 11; moto g power (2022)) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36`

// collectScript resolves with the page's paint, shift and long-task timings
// a few seconds after load. Speed index is approximated from paint timings
// because no filmstrip is recorded.
const collectScript = `new Promise((resolve) => {
  let lcp = 0, cls = 0, tbt = 0, fcp = 0;
  const observe = (type, cb) => {
    try { new PerformanceObserver((l) => l.getEntries().forEach(cb)).observe({type, buffered: true}); } catch (e) {}
  };
  observe('largest-contentful-paint', (e) => { lcp = Math.max(lcp, e.startTime); });
  observe('layout-shift', (e) => { if (!e.hadRecentInput) cls += e.value; });
  observe('longtask', (e) => { if (e.startTime >= fcp) tbt += Math.max(0, e.duration - 50); });
  const finish = () => setTimeout(() => {
    const nav = performance.getEntriesByType('navigation')[0];
    const paint = performance.getEntriesByName('first-contentful-paint')[0];
    fcp = paint ? paint.startTime : 0;
    if (!lcp) lcp = fcp;
    resolve({
      srt: nav ? nav.responseStart - nav.requestStart : 0,
      fcp: fcp,
      si: fcp + (lcp - fcp) / 2,
      lcp: lcp,
      tbt: tbt,
      cls: cls,
    });
  }, 3000);
  if (document.readyState === 'complete') finish(); else addEventListener('load', finish);
})`

// Runner implements repository.AuditRepository with chromedp.
type Runner struct {
	allocators chan context.Context
	cancels    []context.CancelFunc
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRunner starts maxBrowsers allocators. Each audit borrows one, so at most
// maxBrowsers pages load at once.
func NewRunner(maxBrowsers int, pageLoadTimeout time.Duration, logger *zap.Logger) *Runner {
	if maxBrowsers <= 0 {
		maxBrowsers = 1
	}
	r := &Runner{
		allocators: make(chan context.Context, maxBrowsers),
		timeout:    pageLoadTimeout,
		logger:     logger,
	}
	for i := 0; i < maxBrowsers; i++ {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(mobileUserAgent),
		)
		allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
		r.allocators <- allocCtx
		r.cancels = append(r.cancels, cancel)
	}
	return r
}

// Run loads pageURL as a throttled mobile device and returns a lighthouse-shaped result.
func (r *Runner) Run(ctx context.Context, pageURL string) ([]byte, error) {
	var allocCtx context.Context
	select {
	case allocCtx = <-r.allocators:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { r.allocators <- allocCtx }()

	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(r.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, r.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var samples pageSamples
	start := time.Now()
	err := chromedp.Run(taskCtx,
		emulation.SetDeviceMetricsOverride(412, 823, 1.75, true),
		emulation.SetUserAgentOverride(mobileUserAgent),
		chromedp.Navigate(pageURL),
		chromedp.Evaluate(collectScript, &samples, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp audit of %s: %w", pageURL, err)
	}

	r.logger.Debug("Local audit finished",
		zap.String("page_url", pageURL),
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("lcp", samples.LCP),
	)
	return buildReport(samples)
}

// Close shuts down every browser.
func (r *Runner) Close() {
	for _, cancel := range r.cancels {
		cancel()
	}
}
