// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package dialogue_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/parley/internal/bridge"
	"github.com/holomush/parley/internal/command"
	"github.com/holomush/parley/internal/core"
	"github.com/holomush/parley/internal/dialogue"
	"github.com/holomush/parley/internal/generation"
	"github.com/holomush/parley/internal/presentation"
	"github.com/holomush/parley/pkg/errutil"
)

// backend is a scripted generation backend keyed by tool name.
type backend struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []string
	srv     *httptest.Server
}

func newBackend() *backend {
	b := &backend{replies: map[string]string{}}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tool string `json:"tool"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.calls = append(b.calls, req.Tool)
		inner, ok := b.replies[req.Tool]
		b.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"content": []map[string]any{{"type": "text", "text": inner}}},
		})
	}))
	return b
}

func (b *backend) reply(tool, inner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[tool] = inner
}

func (b *backend) called(tool string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == tool {
			n++
		}
	}
	return n
}

// gameServer collects send_chat commands forwarded to it.
type gameServer struct {
	mu    sync.Mutex
	chats map[string][]string
	srv   *httptest.Server
}

func newGameServer() *gameServer {
	g := &gameServer{chats: map[string][]string{}}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cmd bridge.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if cmd.Type == bridge.TypeSendChat {
			g.mu.Lock()
			g.chats[cmd.Player()] = append(g.chats[cmd.Player()], cmd.String("message"))
			g.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return g
}

func (g *gameServer) transcript(player string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return strings.Join(g.chats[player], "\n")
}

var _ = Describe("Conversations over the command channel", func() {
	var (
		be      *backend
		game    *gameServer
		intake  *httptest.Server
		orch    *dialogue.Orchestrator
		cancel  context.CancelFunc
		cleanup []func()
	)

	post := func(cmdType string, data map[string]any) int {
		body, err := json.Marshal(bridge.Command{Type: cmdType, Data: data})
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(intake.URL+"/command", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	BeforeEach(func() {
		be = newBackend()
		game = newGameServer()

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())

		client, err := generation.NewClient(generation.Config{
			Endpoint:       be.srv.URL + "/mcp/call",
			MaxRetries:     1,
			RetryBackoff:   10 * time.Millisecond,
			RequestTimeout: time.Second,
		})
		Expect(err).NotTo(HaveOccurred())

		fwd, err := bridge.NewHTTPForwarder(game.srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		loop := core.NewLoop(0)
		workers := core.NewPool(core.PoolConfig{Workers: 2, QueueSize: 8})
		chatWorkers := core.NewPool(core.PoolConfig{Workers: 1, QueueSize: 64})

		orch, err = dialogue.NewOrchestrator(dialogue.OrchestratorConfig{
			Store:     dialogue.NewSessionStore(),
			Generator: client,
			Workers:   workers,
			Owner:     loop,
			Sink:      presentation.NewChatSink(bridge.NewChatForwarder(ctx, fwd, chatWorkers)),
			Resolver:  dialogue.NewSkillCheckResolver(func() int { return 17 }),
		})
		Expect(err).NotTo(HaveOccurred())

		registry := command.NewRegistry()
		Expect(command.RegisterBuiltins(registry)).To(Succeed())
		limiter := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 2, SustainedRate: 0.1})
		dispatcher, err := command.NewDispatcher(registry, orch,
			command.WithRateLimiter(limiter),
			command.WithPromptState(orch),
		)
		Expect(err).NotTo(HaveOccurred())

		router, err := bridge.NewDialogueRouter(orch, dispatcher, fwd)
		Expect(err).NotTo(HaveOccurred())
		queue := bridge.NewQueue(16)
		consumer, err := bridge.NewConsumer(queue, router, loop)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan struct{}, 2)
		go func() { _ = loop.Run(ctx); done <- struct{}{} }()
		go func() { _ = consumer.Run(ctx); done <- struct{}{} }()

		intake = httptest.NewServer(bridge.NewIntake(queue).Router())

		cleanup = []func(){
			intake.Close,
			cancel,
			func() { <-done; <-done },
			orch.Close,
			workers.Close,
			chatWorkers.Close,
			loop.Close,
			game.srv.Close,
			be.srv.Close,
		}
	})

	AfterEach(func() {
		for _, fn := range cleanup {
			fn()
		}
	})

	It("greets the player and ends on a farewell choice", func() {
		be.reply(generation.ToolStartDialogue,
			`{"npc_name":"Marina","npc_response":"Fresh catch today!","options":[`+
				`{"id":1,"text":"What's biting?"},{"id":2,"text":"Goodbye"}]}`)

		Expect(post(bridge.TypeNPCInteract, map[string]any{"player": "steve", "npc": "marina"})).
			To(Equal(http.StatusAccepted))

		Eventually(func() string { return game.transcript("steve") }, 3*time.Second).
			Should(ContainSubstring("Marina: Fresh catch today!"))
		Expect(game.transcript("steve")).To(ContainSubstring("2. Goodbye"))

		Expect(post(bridge.TypeNPCChoose, map[string]any{"player": "steve", "option": 2})).
			To(Equal(http.StatusAccepted))

		Eventually(func() string { return game.transcript("steve") }, 3*time.Second).
			Should(ContainSubstring("Marina: Fair winds to you."))
		Expect(be.called(generation.ToolRespond)).To(BeZero(), "farewell never reaches the backend")
	})

	It("falls back to the sage's scripted lines when the backend is down", func() {
		Expect(post(bridge.TypeNPCInteract, map[string]any{"player": "alex", "npc": "sage"})).
			To(Equal(http.StatusAccepted))

		Eventually(func() string { return game.transcript("alex") }, 5*time.Second).
			Should(ContainSubstring("Sage acknowledges you with a gentle smile. The forest hums softly."))
		Expect(game.transcript("alex")).To(ContainSubstring("Is there any work for me?"))
		Expect(be.called(generation.ToolStartDialogue)).To(Equal(2), "one retry after the first attempt")
	})

	It("resolves a persuasion check with advantage before responding", func() {
		be.reply(generation.ToolStartDialogue,
			`{"npc_name":"Vex","npc_response":"What do you want?","options":[`+
				`{"id":1,"text":"Come on, help me out","roll_check":{"skill":"Persuasion","difficulty":15,"advantage":true}}]}`)
		be.reply(generation.ToolRespond,
			`{"npc_response":"Fine, you win.","options":[{"id":1,"text":"Thanks"}]}`)

		Expect(post(bridge.TypeNPCInteract, map[string]any{"player": "kim", "npc": "vex"})).
			To(Equal(http.StatusAccepted))
		Eventually(func() string { return game.transcript("kim") }, 3*time.Second).
			Should(ContainSubstring("[Persuasion DC 15"))

		Expect(post(bridge.TypePlayerCommand, map[string]any{"player": "kim", "input": "1"})).
			To(Equal(http.StatusAccepted))

		Eventually(func() string { return game.transcript("kim") }, 3*time.Second).
			Should(ContainSubstring("Vex: Fine, you win."))
		Expect(game.transcript("kim")).To(ContainSubstring("[roll] Persuasion check (DC 15, advantage): rolled 17 and 17, keeping 17 - SUCCESS"))
	})

	It("shows relationship changes and refuses choices outside the list", func() {
		be.reply(generation.ToolStartDialogue,
			`{"npc_name":"Rowan","npc_response":"Back again?","relationship_change":1,`+
				`"new_relationship":{"level":21,"title":"Acquaintance"},"options":[`+
				`{"id":1,"text":"Any news?","leads_to":"response"},{"id":2,"text":"[Leave]","leads_to":"farewell"}]}`)

		Expect(post(bridge.TypeNPCInteract, map[string]any{"player": "ana", "npc": "rowan"})).
			To(Equal(http.StatusAccepted))
		Eventually(func() string { return game.transcript("ana") }, 3*time.Second).
			Should(ContainSubstring("2. [Leave]"))
		Expect(game.transcript("ana")).To(ContainSubstring("Rowan warms to you (Acquaintance)."))

		err := orch.SubmitChoice(context.Background(), "ana", 5)
		errutil.AssertErrorFields(GinkgoT(), err, dialogue.CodeInvalidChoice, map[string]any{"count": 2})

		Expect(post(bridge.TypePlayerCommand, map[string]any{"player": "ana", "input": "2"})).
			To(Equal(http.StatusAccepted))
		Eventually(func() bool { return orch.Store().Get("ana") == nil }, 3*time.Second).Should(BeTrue())
		Expect(be.called(generation.ToolRespond)).To(BeZero())
	})

	It("tells the player when they are not in a conversation", func() {
		Expect(post(bridge.TypeNPCChoose, map[string]any{"player": "lee", "option": 1})).
			To(Equal(http.StatusAccepted))

		Eventually(func() string { return game.transcript("lee") }, 3*time.Second).
			Should(Equal("You're not in a conversation."))
	})

	It("forwards unknown commands to the game server", func() {
		Expect(post("give_item", map[string]any{"player": "sam", "item": "apple"})).
			To(Equal(http.StatusAccepted))
		Consistently(func() string { return game.transcript("sam") }, 200*time.Millisecond).
			Should(BeEmpty())
	})
})
