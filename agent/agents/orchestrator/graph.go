package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/pattarawat/docassist/agent/contract"
	nodex "github.com/pattarawat/docassist/agent/nodes/orchestrator"
)

// compileTurnGraph wires the per-turn pipeline:
//
//	validate -> classify -> dispatch -> update_context -> persist -> audit -> finalize
//
// The pipeline is linear; branching happens inside dispatch where the intent
// selects a tool plan.
func compileTurnGraph(ctx context.Context, nodes *nodex.Nodes) (compose.Runnable[*nodex.GraphState, *contractx.AssistantReply], error) {
	graph := compose.NewGraph[*nodex.GraphState, *contractx.AssistantReply]()

	steps := []struct {
		name string
		fn   func(context.Context, *nodex.GraphState) (*nodex.GraphState, error)
	}{
		{"validate_request", nodes.ValidateRequest},
		{"classify_intent", nodes.ClassifyIntent},
		{"dispatch_tools", nodes.DispatchTools},
		{"update_context", nodes.UpdateContext},
		{"persist_exchange", nodes.PersistExchange},
		{"record_audit", nodes.RecordAudit},
	}

	for _, step := range steps {
		if err := graph.AddLambdaNode(step.name, compose.InvokableLambda(step.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", step.name, err)
		}
	}
	if err := graph.AddLambdaNode("finalize_reply", compose.InvokableLambda(nodes.FinalizeReply)); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	prev := compose.START
	for _, step := range steps {
		if err := graph.AddEdge(prev, step.name); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", prev, step.name, err)
		}
		prev = step.name
	}
	if err := graph.AddEdge(prev, "finalize_reply"); err != nil {
		return nil, fmt.Errorf("add edge %s->finalize_reply: %w", prev, err)
	}
	if err := graph.AddEdge("finalize_reply", compose.END); err != nil {
		return nil, fmt.Errorf("add edge finalize_reply->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("conversation_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
