package models

const (
	// PromptVersion identifies the instruction template below. Bump it when
	// the template changes; it is not user-configurable at runtime.
	PromptVersion = "v2"

	ContextSeparator = "\n\n---\n\n"

	SystemMessage = "You are a helpful AI teaching assistant that answers questions based on uploaded course materials."
)

// PromptTemplate is filled with the joined context and the student's question.
var PromptTemplate = `You are an AI Teaching Assistant. Answer the student's question based on the provided context from uploaded course materials.

Context from course materials:
%s

Student's question: %s

Instructions:
- Answer the question based primarily on the provided context
- Use clear, well-structured formatting with proper paragraphs
- Use numbered lists (1. 2. 3.) for main sections when appropriate
- Use bullet points (-) for sub-items
- Use **bold text** for important terms or section headers
- If the context contains relevant information, provide a helpful answer
- If the context is only partially relevant, use what you can and mention that you're working with limited information
- Be conversational and helpful
- If you truly cannot answer based on the context, say so politely

Format your response with clear structure and proper spacing for readability.

Answer:`

// User-facing messages. Raw errors from third-party libraries are never
// shown to end users, only these.
const (
	MsgEmptyCorpus = "I don't have any uploaded course materials to reference. Please upload some documents first."

	// MsgBelowThreshold is formatted with the best similarity score.
	MsgBelowThreshold = "I couldn't find information directly related to your question in the uploaded materials. The best match had a similarity score of %.3f. Could you try asking about specific topics from your course materials?"

	MsgEmbeddingFailed  = "I'm sorry, there was an error processing your question. Please try again."
	MsgSearchFailed     = "I'm sorry, there was an error accessing the document database. Please try again."
	MsgGenerationFailed = "I'm sorry, there was an error generating a response. Please try again."
	MsgNotConfigured    = "I'm sorry, the AI service is not properly configured. Please check the API key."
)
