package model

// Citation is one PubMed article linked to a trial, as resolved from the
// summary endpoint.
type Citation struct {
	PMID    string `json:"pmid"`
	Title   string `json:"title,omitempty"`
	Source  string `json:"source,omitempty"`
	PubDate string `json:"pubdate,omitempty"`
	DOI     string `json:"doi,omitempty"`
}

// CitationRow is a persisted citation: the article plus its trial linkage
// and the last time the linker saw it.
type CitationRow struct {
	Citation
	NCTID    string `json:"nct_id"`
	LastSeen string `json:"last_seen_utc"`
}
