package scraper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

const desktopUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserOptions configures the headless browser.
type BrowserOptions struct {
	ChromeBin string
	Headless  bool
	Proxy     string
}

func allocatorOptions(opts BrowserOptions) []chromedp.ExecAllocatorOption {
	out := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(desktopUserAgent),
	)
	bin := opts.ChromeBin
	if bin == "" {
		bin = FindChromeBinary()
	}
	if bin != "" {
		out = append(out, chromedp.ExecPath(bin))
	}
	if opts.Proxy != "" {
		out = append(out, chromedp.ProxyServer(opts.Proxy))
	}
	return out
}

// Session is one running browser allocator. Callers create it, pass it to
// the fetchers that need it and Close it when the run ends.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession starts an allocator. The browser process itself is launched
// lazily by the first tab.
func NewSession(opts BrowserOptions) *Session {
	ctx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	return &Session{ctx: ctx, cancel: cancel}
}

// Close shuts the browser down.
func (s *Session) Close() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// BrowserFetcher renders pages in headless Chrome. With proxies configured
// each fetch gets its own allocator routed through the next proxy in turn.
type BrowserFetcher struct {
	session *Session
	opts    BrowserOptions
	timeout time.Duration
	settle  time.Duration
	scrolls int
	logger  *utils.Logger

	mu      sync.Mutex
	proxies []string
	next    int
}

// NewBrowserFetcher wraps session. session may be nil when proxies are set.
func NewBrowserFetcher(session *Session, opts BrowserOptions, timeout time.Duration, proxies []string, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		session: session,
		opts:    opts,
		timeout: timeout,
		settle:  4 * time.Second,
		scrolls: 2,
		proxies: proxies,
		logger:  logger,
	}
}

func (f *BrowserFetcher) nextProxy() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.proxies) == 0 {
		return ""
	}
	p := f.proxies[f.next%len(f.proxies)]
	f.next++
	return p
}

// Fetch navigates to q.URL, scrolls to trigger lazy loading and returns the
// rendered HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, q models.Query) *models.RawDocument {
	if ctx.Err() != nil {
		return cancelled(ctx, q)
	}

	parent, release := f.allocator()
	defer release()
	if parent == nil {
		doc := &models.RawDocument{Query: q}
		return finish(ctx, doc, errors.New("no browser session"))
	}

	tabCtx, cancelTab := chromedp.NewContext(parent, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()
	runCtx, cancelRun := context.WithTimeout(tabCtx, f.timeout)
	defer cancelRun()
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(q.URL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(f.settle),
	}
	for i := 0; i < f.scrolls; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
		)
	}
	var html, location string
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	f.logger.Debug("[browser] Rendering %s", q.URL)
	err := chromedp.Run(runCtx, actions...)

	doc := &models.RawDocument{Query: q, FinalURL: q.URL}
	if location != "" {
		doc.FinalURL = location
	}
	if err == nil {
		doc.Content = []byte(html)
		doc.StatusCode = 200
	} else if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = context.DeadlineExceeded
	}
	doc = finish(ctx, doc, err)
	if doc.Status != models.FetchOK {
		f.logger.Warn("[browser] %s: %v", q.URL, doc.Err)
	}
	return doc
}

// allocator returns the context tabs are opened from and a release func.
func (f *BrowserFetcher) allocator() (context.Context, func()) {
	if proxy := f.nextProxy(); proxy != "" {
		opts := f.opts
		opts.Proxy = proxy
		f.logger.Debug("[browser] Routing through proxy %s", proxy)
		s := NewSession(opts)
		return s.ctx, s.Close
	}
	if f.session == nil {
		return nil, func() {}
	}
	return f.session.ctx, func() {}
}

// FindChromeBinary locates a Chrome or Chromium executable, preferring
// CHROME_BIN. It returns "" when none is installed.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
