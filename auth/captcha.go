package auth

import "sync"

// StaticCaptcha hands out a token solved outside the terminal.
// A token pasted with Set is single use and Reset forgets it; the configured
// token (CAPTCHA_TOKEN, e.g. a provider test key) survives resets.
type StaticCaptcha struct {
	mu         sync.Mutex
	configured string
	pasted     string
}

func NewStaticCaptcha(configured string) *StaticCaptcha {
	return &StaticCaptcha{configured: configured}
}

func (c *StaticCaptcha) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pasted != "" {
		return c.pasted
	}
	return c.configured
}

func (c *StaticCaptcha) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pasted = token
}

func (c *StaticCaptcha) Reset() {
	c.Set("")
}
