package customHttpClient

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
)

var (
	sharedClient *http.Client
	once         sync.Once
)

var customTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
	TLSHandshakeTimeout: 5 * time.Second,
}

// Get returns the pooled client shared by the LLM, embedding, web search and page
// fetching adapters.
func Get() *http.Client {
	once.Do(func() {
		sharedClient = &http.Client{
			Transport: customTransport,
			Timeout:   config.OutboundHTTPTimeout,
		}
	})
	return sharedClient
}

// CloseIdle drops pooled connections on shutdown.
func CloseIdle() {
	customTransport.CloseIdleConnections()
}
