package email_processor

import (
	"context"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/internal/utils"
)

// ThreadRouter matches an inbox message against the active threads by
// participant overlap. Manual address mappings win over participant
// matching so operators can pin a sender to a thread.
type ThreadRouter struct {
	threadRepo  interfaces.ThreadRepository
	mappingRepo interfaces.ThreadMappingRepository
	myEmail     string
}

func NewThreadRouter(threadRepo interfaces.ThreadRepository, mappingRepo interfaces.ThreadMappingRepository, myEmail string) *ThreadRouter {
	return &ThreadRouter{
		threadRepo:  threadRepo,
		mappingRepo: mappingRepo,
		myEmail:     strings.ToLower(myEmail),
	}
}

// Route decides which thread owns the message. The mailbox's own address is
// excluded from matching since it appears on every message.
func (r *ThreadRouter) Route(ctx context.Context, msg *models.RawMessage) (models.RoutingDecision, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadRouter.Route")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, msg.UID)

	addresses := r.participantAddresses(msg)

	mappings, err := r.mappingRepo.GetAllMappings(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return models.RoutingDecision{}, err
	}
	for _, addr := range addresses {
		if threadID, ok := mappings[addr]; ok {
			span.SetTag(tracing.SpanTagThreadID, threadID)
			span.SetTag("routing.via", "mapping")
			return models.RoutedDecision(threadID, addresses), nil
		}
	}

	threads, err := r.threadRepo.GetActiveThreads(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return models.RoutingDecision{}, err
	}

	matched := map[string]bool{}
	for _, thread := range threads {
		for _, participant := range thread.Participants {
			participant = strings.ToLower(participant)
			if participant == r.myEmail {
				continue
			}
			if utils.IsStringInSlice(participant, addresses) {
				matched[thread.ID] = true
				break
			}
		}
	}

	switch len(matched) {
	case 1:
		for threadID := range matched {
			span.SetTag(tracing.SpanTagThreadID, threadID)
			return models.RoutedDecision(threadID, addresses), nil
		}
	case 0:
		span.SetTag("routing.outcome", "no_match")
		return models.NoMatchDecision(addresses), nil
	}

	candidates := make([]string, 0, len(matched))
	for threadID := range matched {
		candidates = append(candidates, threadID)
	}
	span.SetTag("routing.outcome", "ambiguous")
	return models.AmbiguousDecision(candidates, addresses), nil
}

// participantAddresses collects every address on the message, lower-cased,
// syntax-checked, deduplicated, with the mailbox's own address removed.
func (r *ThreadRouter) participantAddresses(msg *models.RawMessage) []string {
	var raw []string
	for _, group := range [][]models.Address{msg.From, msg.To, msg.Cc, msg.ReplyTo, msg.Sender} {
		for _, addr := range group {
			raw = append(raw, strings.ToLower(strings.TrimSpace(addr.Address)))
		}
	}
	for _, forwarded := range msg.Header["X-Forwarded-For"] {
		for _, addr := range strings.Split(forwarded, ",") {
			raw = append(raw, strings.ToLower(strings.TrimSpace(addr)))
		}
	}

	var addresses []string
	for _, addr := range utils.UniqueEmails(raw) {
		if addr == r.myEmail {
			continue
		}
		syntax := mailvalidate.ValidateEmailSyntax(addr)
		if !syntax.IsValid {
			continue
		}
		addresses = append(addresses, addr)
	}
	return addresses
}
