// Package factdex provides a Go client for fact-aware search over an
// Elasticsearch-compatible backend.
//
// A Session holds one combined query: a main bool query over documents plus
// fact sub-queries over the nested texta_facts container. Fact lookups are
// cached in process and, optionally, in Redis or Valkey.
//
//	client, _ := factdex.New(ctx,
//	    factdex.WithBackend("http://localhost:9200"),
//	    factdex.WithRemoteCache("localhost:6379", ""),
//	)
//	defer client.Close()
//
//	s := client.Session(factdex.Dataset{Index: "news"})
//	_ = s.Build(factdex.Params{
//	    Constraints: []factdex.FieldConstraint{{Field: "title", Text: "election"}},
//	    Facts:       []factdex.FactConstraint{{Name: "PER", Value: "Kaja Kallas"}},
//	})
//	res, _ := s.Search(ctx)
//	facts, _ := s.FactsMap(ctx, res.IDs())
//
// Index administration lives on client.Indices().
package factdex
