// Package citeflow resolves inline citations in LLM answers to sections of stored
// documents, in process, without the HTTP service.
//
// Answers cite pages with markers like <doc=report.pdf;page=12>. Resolution numbers
// the markers in order of first appearance, rewrites them as [n] and returns one
// source per distinct document page, with the matched section and highlights.
//
//	client, _ := citeflow.New(citeflow.WithMemory())
//	_, _ = client.Trees().Put(ctx, tree)
//	res, _ := client.Resolve(ctx, answer, "how did revenue grow", "report")
//	for _, s := range res.Sources {
//	    fmt.Println(s.CitationNumber, s.Title, s.PageIndex)
//	}
//
// # Streaming
//
// A Stream accumulates tokens as they arrive and resolves once the answer is complete:
//
//	st, _ := client.NewStream(ctx, query, "report")
//	for tok := range tokens {
//	    _ = st.Push(tok)
//	}
//	events, _ := st.Finish(ctx) // source events, then done
package citeflow
