package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// Options 通用HTTP客户端参数
type Options struct {
	Timeout    int    // 请求超时（秒）
	RetryCount int    // 失败重试次数
	Proxy      string // 代理地址（可空）
}

// New 通用HTTP客户端构建方法（支持代理、超时、重试、自动解压）
func New(opts Options, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  false,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// 配置代理
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", opts.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", opts.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	timeout := time.Duration(opts.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// 重试客户端：瞬时网络错误与5xx自动重试，退避由库内置
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryCount
	retryClient.Logger = nil // 重试日志过于啰嗦，统一由调用方记录
	retryClient.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &compressedTransport{transport: transport, logger: logger},
	}

	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}

// compressedTransport 请求带gzip接受头，响应按需解压
type compressedTransport struct {
	transport http.RoundTripper
	logger    *logrus.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Add("Accept-Encoding", "gzip")
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// 处理gzip解压
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{
			Reader: gzReader,
			closer: resp.Body,
		}
		resp.Header.Del("Content-Encoding")
	}

	return resp, nil
}

// gzipReadCloser 包装io.ReadCloser，关闭时同时释放解压reader与原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		return err
	}
	return g.closer.Close()
}
