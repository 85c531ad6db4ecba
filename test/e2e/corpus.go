package e2e

import "fmt"

// Document is one corpus entry written to disk as a file.
type Document struct {
	FileName string
	Content  string
}

// QueryTestCase is a question and a phrase that must appear in one of the returned sources.
type QueryTestCase struct {
	Query          string
	ExpectedPhrase string
}

// Corpus holds documents and query test cases.
type Corpus struct {
	Documents []Document
	TestCases []QueryTestCase
}

var topics = []struct {
	slug    string
	phrase  string
	content string
}{
	{"python", "Python programming language", "Python is a high-level programming language. Python programming language is used for web development and data science."},
	{"kubernetes", "Kubernetes container orchestration", "Kubernetes is an open-source platform. Kubernetes container orchestration automates deployment and scaling."},
	{"postgres", "PostgreSQL relational database", "PostgreSQL is an advanced database server. PostgreSQL relational database supports JSON columns."},
	{"redis", "Redis in-memory cache", "Redis is a key value store. Redis in-memory cache keeps sessions close to the application."},
	{"oauth", "OAuth authorization framework", "OAuth grants delegated access. OAuth authorization framework issues tokens to third parties."},
	{"terraform", "Terraform infrastructure code", "Terraform manages cloud resources. Terraform infrastructure code is declarative and versioned."},
	{"kafka", "Kafka event streaming", "Kafka is a distributed log. Kafka event streaming handles high throughput pipelines."},
	{"nginx", "Nginx reverse proxy", "Nginx is a web server. Nginx reverse proxy balances load and serves static files."},
}

// BuildCorpus returns one document per topic, cycling through the supported file types,
// and one query per topic asking for its signature phrase.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for i, t := range topics {
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		c.Documents = append(c.Documents, Document{
			FileName: t.slug + ext,
			Content:  t.content,
		})
		c.TestCases = append(c.TestCases, QueryTestCase{
			Query:          fmt.Sprintf("What does the %s text say?", t.phrase),
			ExpectedPhrase: t.phrase,
		})
	}
	return c
}
