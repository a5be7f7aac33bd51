package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"threadview/api/internal/attachments"
	"threadview/api/internal/config"
	"threadview/api/internal/listing"
	"threadview/api/internal/membership"
	"threadview/api/internal/search"
	"threadview/api/internal/store"
	"threadview/api/internal/thread"
)

// SnippetLength bounds question previews on the community page.
const SnippetLength = 100

// relatedCap bounds the related-posts lookup for very long threads.
const relatedCap = 20

type dataStore interface {
	Ping(context.Context) error
	GetServer(context.Context, string) (store.Server, error)
	GetServerByDomain(context.Context, string) (store.Server, error)
	GetChannel(context.Context, string) (store.Channel, error)
	ListServerChannels(context.Context, string) ([]store.Channel, error)
	GetMessage(context.Context, string) (store.Message, error)
	FindThread(context.Context, store.Message) (store.Channel, bool, error)
	ListThreadMessages(context.Context, string) ([]store.Message, error)
	ListChannelQuestions(context.Context, string, int, int) ([]store.Question, error)
}

type searcher interface {
	Search(context.Context, search.Query) search.Response
	Related(ctx context.Context, serverID, title, excludeThreadID string, limit int) []search.Result
}

type attachmentResolver interface {
	Resolve(context.Context, []thread.DisplayBlock)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	oracle   membership.Oracle
	search   searcher
	presign  attachmentResolver
	pipeline thread.Pipeline
}

// New wires the page service. oracle may be nil, in which case every viewer
// is treated as unknown. presigner may be nil to serve stored URLs.
func New(cfg config.Config, dataStore *store.PostgresStore, oracle membership.Oracle, searchService *search.Service, presigner *attachments.Presigner) *Service {
	svc := &Service{
		cfg:     cfg,
		store:   dataStore,
		oracle:  oracle,
		presign: presigner,
		pipeline: thread.Pipeline{
			NoiseAuthorID: cfg.NoiseAuthorID,
			Exclusion:     cfg.NoiseExclusion,
		},
	}
	if searchService != nil {
		svc.search = searchService
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingCache checks the membership cache, when the oracle has one. Lookups
// fall through to Discord when it is down, so this never blocks readiness.
func (s *Service) PingCache(ctx context.Context) error {
	if cache, ok := s.oracle.(interface{ Ping(context.Context) error }); ok {
		return cache.Ping(ctx)
	}
	return nil
}

func (s *Service) pageSize() int {
	if s.cfg.PageSize > 0 {
		return s.cfg.PageSize
	}
	return listing.DefaultPageSize
}

// Tenant resolves the server whose custom domain is host. The main site and
// unknown hosts have no tenant.
func (s *Service) Tenant(ctx context.Context, host string) (*store.Server, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || host == "localhost" || host == strings.ToLower(s.cfg.MainSiteHostname) {
		return nil, nil
	}
	server, err := s.store.GetServerByDomain(ctx, host)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tenant %s: %w", host, err)
	}
	return &server, nil
}

// threadView is everything loaded and computed for one message page.
type threadView struct {
	server     store.Server
	channel    store.Channel
	thread     *store.Channel
	messages   []thread.Message
	membership thread.Membership
	result     thread.Result
	qa         thread.QAPage
}

func (s *Service) loadThread(ctx context.Context, messageID, viewerID string, tenant *store.Server) (threadView, error) {
	var view threadView

	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return view, err
	}
	if tenant != nil && message.ServerID != tenant.ID {
		return view, messageNotFound()
	}

	view.server, err = s.store.GetServer(ctx, message.ServerID)
	if err != nil {
		return view, fmt.Errorf("load server: %w", err)
	}

	threadChannel, inThread, err := s.store.FindThread(ctx, message)
	if err != nil {
		return view, err
	}
	raw := []store.Message{message}
	channelID := message.ChannelID
	if inThread {
		view.thread = &threadChannel
		channelID = *threadChannel.ParentID
		raw, err = s.store.ListThreadMessages(ctx, threadChannel.ID)
		if err != nil {
			return view, err
		}
	}
	view.channel, err = s.store.GetChannel(ctx, channelID)
	if err != nil {
		return view, fmt.Errorf("load channel: %w", err)
	}
	if !view.channel.IndexingEnabled {
		return view, messageNotFound()
	}

	view.messages = toThreadMessages(raw)

	status, err := membership.Resolve(ctx, s.oracle, viewerID, view.server.ID)
	if err != nil {
		log.Printf("membership lookup for server %s failed, treating viewer as unknown: %v", view.server.ID, err)
	}
	view.membership = status

	view.result, err = s.pipeline.Run(view.messages, status)
	if err != nil {
		return view, err
	}

	title := ""
	if view.thread != nil {
		title = view.thread.Name
	}
	view.qa = s.buildQA(view, title)
	return view, nil
}

// buildQA works from what the viewer may see: private content stays out of
// the structured data unless the viewer is a member.
func (s *Service) buildQA(view threadView, title string) thread.QAPage {
	disclose := view.membership.DisclosesPrivate()
	redact := func(m thread.Message) thread.Message {
		if !m.Public && !disclose {
			m.Content = ""
		}
		return m
	}

	first := redact(view.messages[0])
	var solution *thread.Message
	if found, ok := thread.FindMessage(view.messages, view.result.SolutionID); ok {
		found = redact(found)
		solution = &found
	}
	return thread.BuildQA(first, solution, title, s.canonicalHost(view.server))
}

func (s *Service) canonicalHost(server store.Server) string {
	domain := ""
	if server.CustomDomain != nil {
		domain = *server.CustomDomain
	}
	return thread.CanonicalHost(domain, s.cfg.MainSiteHostname)
}

// MessagePage renders the thread containing messageID for a viewer.
func (s *Service) MessagePage(ctx context.Context, messageID, viewerID string, tenant *store.Server) (map[string]any, error) {
	started := time.Now()
	view, err := s.loadThread(ctx, messageID, viewerID, tenant)
	if err != nil {
		pageRenders.WithLabelValues("message", renderOutcome(err)).Inc()
		return nil, err
	}

	if s.presign != nil {
		s.presign.Resolve(ctx, view.result.Blocks)
	}

	related := []search.Result{}
	if s.search != nil {
		threadID := view.messages[0].ID
		if view.thread != nil {
			threadID = view.thread.ID
		}
		limit := min(2*len(view.messages), relatedCap)
		related = s.search.Related(ctx, view.server.ID, view.qa.MainEntity.Name, threadID, limit)
	}

	pageRenders.WithLabelValues("message", "ok").Inc()
	hiddenMessages.Observe(float64(view.result.HiddenTotal))
	renderDuration.WithLabelValues("message").Observe(time.Since(started).Seconds())

	var threadPayload any
	if view.thread != nil {
		threadPayload = channelPayload(*view.thread)
	}
	host := s.canonicalHost(view.server)
	return map[string]any{
		"server":       serverPayload(view.server),
		"channel":      channelPayload(view.channel),
		"thread":       threadPayload,
		"blocks":       view.result.Blocks,
		"solutionId":   nullable(view.result.SolutionID, view.result.Promoted),
		"hiddenCount":  view.result.HiddenTotal,
		"qa":           view.qa,
		"relatedPosts": related,
		"adsEnabled":   tenant == nil,
		"membership":   string(view.membership),
		"canonicalUrl": fmt.Sprintf("https://%s/m/%s", host, messageID),
	}, nil
}

// MessageQA returns only the structured data for the thread of messageID.
func (s *Service) MessageQA(ctx context.Context, messageID, viewerID string, tenant *store.Server) (thread.QAPage, error) {
	view, err := s.loadThread(ctx, messageID, viewerID, tenant)
	if err != nil {
		return thread.QAPage{}, err
	}
	return view.qa, nil
}

// CommunityPage lists one page of questions in a channel. An empty
// channelID selects the server's first channel.
func (s *Service) CommunityPage(ctx context.Context, serverID, channelID string, page int, tenant *store.Server) (map[string]any, error) {
	var server store.Server
	if tenant != nil {
		server = *tenant
	} else {
		var err error
		server, err = s.store.GetServer(ctx, serverID)
		if err != nil {
			return nil, err
		}
	}

	channels, err := s.store.ListServerChannels(ctx, server.ID)
	if err != nil {
		return nil, err
	}

	var selected *store.Channel
	for i := range channels {
		if channelID == "" || channels[i].ID == channelID {
			selected = &channels[i]
			break
		}
	}
	if selected == nil && channelID != "" {
		pageRenders.WithLabelValues("community", "not_found").Inc()
		return nil, channelNotFound(channelID)
	}

	channelItems := make([]map[string]any, 0, len(channels))
	for _, channel := range channels {
		item := channelPayload(channel)
		item["href"] = listing.Routes{ServerID: server.ID, ChannelID: channel.ID, Tenant: tenant != nil}.Base()
		channelItems = append(channelItems, item)
	}

	questions := []map[string]any{}
	var selectedPayload any
	var cursor listing.Cursor
	if selected != nil {
		size := s.pageSize()
		found, err := s.store.ListChannelQuestions(ctx, selected.ID, size, listing.Offset(page, size))
		if err != nil {
			return nil, err
		}
		for _, q := range found {
			questions = append(questions, questionPayload(q))
		}
		routes := listing.Routes{ServerID: server.ID, ChannelID: selected.ID, Tenant: tenant != nil}
		cursor = listing.NewCursor(routes, page, len(found), size)
		selectedPayload = channelPayload(*selected)
	} else {
		cursor = listing.Cursor{Page: page}
	}

	pageRenders.WithLabelValues("community", "ok").Inc()
	return map[string]any{
		"server":     serverPayload(server),
		"channels":   channelItems,
		"channel":    selectedPayload,
		"questions":  questions,
		"pagination": cursor,
		"adsEnabled": tenant == nil,
	}, nil
}

// SearchPage runs a message search. A tenant restricts results to its server.
func (s *Service) SearchPage(ctx context.Context, query, serverID string, page int, tenant *store.Server) (map[string]any, error) {
	if tenant != nil {
		serverID = tenant.ID
	}
	query = strings.TrimSpace(query)
	size := s.pageSize()

	response := search.Response{Results: []search.Result{}, Query: query}
	if s.search != nil && query != "" {
		response = s.search.Search(ctx, search.Query{
			Text:     query,
			ServerID: serverID,
			Limit:    size,
			Offset:   listing.Offset(page, size),
		})
	}

	pageRenders.WithLabelValues("search", "ok").Inc()
	return map[string]any{
		"query":      response.Query,
		"results":    response.Results,
		"total":      response.Total,
		"pagination": listing.SearchCursor(query, serverID, page, len(response.Results), size),
		"adsEnabled": tenant == nil,
	}, nil
}

func toThreadMessages(raw []store.Message) []thread.Message {
	out := make([]thread.Message, 0, len(raw))
	for _, m := range raw {
		converted := thread.Message{
			ID:          m.ID,
			ChannelID:   m.ChannelID,
			Author:      thread.Author{ID: m.AuthorID, Name: m.AuthorName, Avatar: deref(m.AuthorAvatar)},
			Content:     m.Content,
			Attachments: make([]thread.Attachment, 0, len(m.Attachments)),
			Embeds:      make([]thread.Embed, 0, len(m.Embeds)),
			Public:      m.Public,
			SolutionIDs: m.SolutionIDs,
			CreatedAt:   m.CreatedAt,
		}
		for _, a := range m.Attachments {
			converted.Attachments = append(converted.Attachments, thread.Attachment{
				ID:          a.ID,
				Filename:    a.Filename,
				ContentType: a.ContentType,
				Size:        a.Size,
				ObjectKey:   a.ObjectKey,
				URL:         a.URL,
			})
		}
		for _, e := range m.Embeds {
			converted.Embeds = append(converted.Embeds, thread.Embed{Title: e.Title, Description: e.Description, URL: e.URL})
		}
		out = append(out, converted)
	}
	return out
}

func serverPayload(server store.Server) map[string]any {
	description := deref(server.Description)
	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("Join the community to ask questions about %s and get answers from other members.", server.Name)
	}
	return map[string]any{
		"id":           server.ID,
		"name":         server.Name,
		"description":  description,
		"icon":         server.Icon,
		"customDomain": server.CustomDomain,
		"inviteCode":   server.InviteCode,
	}
}

func channelPayload(channel store.Channel) map[string]any {
	return map[string]any{
		"id":       channel.ID,
		"serverId": channel.ServerID,
		"parentId": channel.ParentID,
		"name":     channel.Name,
		"type":     channel.Type,
	}
}

func questionPayload(q store.Question) map[string]any {
	return map[string]any{
		"threadId":   q.Thread.ID,
		"title":      q.Thread.Name,
		"messageId":  q.Message.ID,
		"authorName": q.Message.AuthorName,
		"snippet":    thread.Truncate(thread.StripMarkup(q.Message.Content), SnippetLength),
		"createdAt":  q.Message.CreatedAt,
	}
}

func renderOutcome(err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return "not_found"
	}
	if errors.Is(err, thread.ErrEmptyThread) {
		return "empty"
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Status == http.StatusNotFound {
		return "not_found"
	}
	return "error"
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nullable(value string, ok bool) any {
	if !ok || value == "" {
		return nil
	}
	return value
}
