package rag

import "errors"

var (
	// ErrInvalidQuery is returned when the query is empty after trimming.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRetrievalUnavailable wraps embedding or vector index failures after retries.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrGenerationUnavailable wraps answer generation failures after retries.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	errEmptyAnswer = errors.New("generator returned an empty answer")
)

// Fixed answers for responses produced without a generated text.
const (
	NoKnowledgeAnswer = "I apologize, but I couldn't find relevant information in my knowledge base " +
		"to answer your question about Polish law and daily life.\n\n" +
		"This could mean:\n" +
		"1. The information hasn't been added to the knowledge base yet\n" +
		"2. Your query might need to be rephrased\n" +
		"3. This topic might not be covered in the current database\n\n" +
		"I recommend:\n" +
		"- Trying a different phrasing of your question\n" +
		"- Checking official Polish government websites (gov.pl)\n" +
		"- Consulting with a legal professional for specific cases"

	failurePrefix = "I apologize, but I encountered an issue: "

	RetrievalUnavailableAnswer = failurePrefix +
		"The knowledge base is not currently available. Please try again later."
	GenerationUnavailableAnswer = failurePrefix +
		"The response generation service is not currently available. Please try again later."
)
