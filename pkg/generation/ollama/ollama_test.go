package ollama_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/generation"
	"github.com/perpetual-s/gemi/pkg/generation/ollama"
	"github.com/perpetual-s/gemi/pkg/logger"
)

func TestOllama(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Generation Suite")
}

// writeChunk writes one NDJSON chat chunk and flushes it.
func writeChunk(w http.ResponseWriter, content string, done bool) {
	fmt.Fprintf(w, `{"model":"test","message":{"role":"assistant","content":%q},"done":%t}`+"\n", content, done)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func collect(stream *generation.Stream) []string {
	var fragments []string
	for fragment := range stream.Fragments() {
		fragments = append(fragments, fragment)
	}
	return fragments
}

var _ = Describe("Service", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)
	})

	newService := func() *ollama.Service {
		return ollama.NewService(ollama.Config{
			BaseURL: server.URL,
			Model:   "test",
		}, logger.NewLogger(false))
	}

	Describe("StreamChat", func() {
		It("delivers fragments in order and finishes cleanly", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/chat"))
				writeChunk(w, "Hello", false)
				writeChunk(w, ", ", false)
				writeChunk(w, "world", false)
				writeChunk(w, "", true)
			}

			stream, err := newService().StreamChat(context.Background(), []generation.Message{
				{Role: "user", Content: "hi"},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(collect(stream)).To(Equal([]string{"Hello", ", ", "world"}))
			Expect(stream.Err()).NotTo(HaveOccurred())
		})

		It("reports an error when the stream ends without a done chunk", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				writeChunk(w, "partial", false)
			}

			stream, err := newService().StreamChat(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(collect(stream)).To(Equal([]string{"partial"}))
			Expect(stream.Err()).To(HaveOccurred())
		})

		It("reports an error when the context is cancelled mid-stream", func() {
			release := make(chan struct{})
			handler = func(w http.ResponseWriter, r *http.Request) {
				writeChunk(w, "first", false)
				<-release
			}
			DeferCleanup(func() { close(release) })

			ctx, cancel := context.WithCancel(context.Background())
			stream, err := newService().StreamChat(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			Eventually(stream.Fragments()).Should(Receive(Equal("first")))
			cancel()

			Eventually(stream.Fragments(), 5*time.Second).Should(BeClosed())
			Expect(stream.Err()).To(MatchError(ContainSubstring("context canceled")))
		})

		It("returns an error on a non-200 response", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			}

			_, err := newService().StreamChat(context.Background(), nil)
			Expect(err).To(MatchError(ContainSubstring("404")))
		})
	})

	Describe("ChatOnce", func() {
		It("returns the full response text", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				writeChunk(w, "- fact one\n- fact two", true)
			}

			text, err := newService().ChatOnce(context.Background(), []generation.Message{
				{Role: "user", Content: "extract"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("- fact one\n- fact two"))
		})
	})

	Describe("Ping", func() {
		It("succeeds when the server responds", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/tags"))
				fmt.Fprint(w, `{"models":[]}`)
			}

			Expect(newService().Ping(context.Background())).To(Succeed())
		})

		It("fails when the server is unreachable", func() {
			service := ollama.NewService(ollama.Config{
				BaseURL: "http://127.0.0.1:1",
			}, logger.NewLogger(false))

			Expect(service.Ping(context.Background())).NotTo(Succeed())
		})
	})
})
