package generation

import (
	"strings"
	"text/template"

	"github.com/leap-learning/leap-server/pkg/types"
)

// Language names used to pick the code sample in lesson prompts.
const (
	LanguagePython     = "python"
	LanguageJavaScript = "javascript"
	LanguageJava       = "java"
	LanguageCPP        = "cpp"
	LanguageGeneral    = "general"
)

// InferLanguage guesses the programming language a course is about from free
// text. "javascript" is checked before "java" because it contains it.
func InferLanguage(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "python"):
		return LanguagePython
	case strings.Contains(lower, "javascript"):
		return LanguageJavaScript
	case strings.Contains(lower, "java"):
		return LanguageJava
	case strings.Contains(lower, "cpp"), strings.Contains(lower, "c++"):
		return LanguageCPP
	default:
		return LanguageGeneral
	}
}

// LessonRequest carries the course context for one lesson's content.
type LessonRequest struct {
	CourseName        string `json:"courseName"`
	CourseDescription string `json:"courseDescription"`
	Level             string `json:"level"`
	ChapterTitle      string `json:"chapterTitle" binding:"required,notblank"`
	SubtopicName      string `json:"subtopicName" binding:"required,notblank"`
	Language          string `json:"language"`
}

type codeSample struct {
	Import string
	Open   string
	Body   string
	Close  string
	Call   string
}

var samples = map[string]codeSample{
	LanguagePython: {
		Import: "import pandas as pd",
		Open:   "def example():",
		Body:   `    print("Hello World")`,
		Call:   "example()",
	},
	LanguageCPP: {
		Import: "#include <iostream>",
		Open:   "int main() {",
		Body:   `    std::cout << "Hello World" << std::endl;`,
		Close:  "    return 0;",
		Call:   "}",
	},
	LanguageJava: {
		Import: "import java.util.*;",
		Open:   "public class Example {",
		Body:   `    System.out.println("Hello World");`,
		Close:  "}",
	},
	LanguageGeneral: {
		Import: `import React from "react"`,
		Open:   "function example() {",
		Body:   `    console.log("Hello World");`,
		Close:  "}",
	},
}

func sampleFor(language string) codeSample {
	if s, ok := samples[language]; ok {
		return s
	}
	return samples[LanguageGeneral]
}

var roadmapTemplate = template.Must(template.New("roadmap").Parse(
	`You are an expert curriculum designer. Your task is to generate a comprehensive, structured course roadmap for one topic in JSON format based on the provided course topic and target audience level.

CRITICAL INSTRUCTIONS FOR OUTPUT FORMAT:
1. The output MUST be a single, valid JSON array.
2. Each item in the array MUST be an object with three keys: "id" (a sequential string starting from "1"), "title" (the module name) and "subtopics" (an array of strings).
3. Subtopic strings MUST be very short (3-5 words), concise, and split complex topics into fine-grained items. Do NOT use bold, asterisks or any markdown inside the strings.
4. Chapter titles must be unique, and no subtopic may repeat its chapter title.
5. Modules progress from foundational concepts to advanced and applied ones.

INPUTS YOU MUST USE:
1. Course Topic: {{.Topic}}
2. Course Level: {{.Level}}

EXAMPLE OF DESIRED OUTPUT STRUCTURE:
[
  { "id": "1", "title": "Module Title One", "subtopics": ["Very short subtopic 1", "Very short subtopic 2"] },
  { "id": "2", "title": "Module Title Two", "subtopics": ["Concise concept A", "Concise concept B"] }
]`))

var lessonTemplate = template.Must(template.New("lesson").Parse(
	`You are an expert educator. Generate concise educational content for a specific subtopic.

Course Details:
- Course: {{.CourseName}}
- Description: {{.CourseDescription}}
- Level: {{.Level}}
- Chapter: {{.ChapterTitle}}
- Subtopic: {{.SubtopicName}}
- Programming Language: {{.Language}}

Generate focused content for this specific subtopic only.

Return ONLY the LaTeX content directly without any JSON wrapper. Format it exactly as:

\section{ {{- .SubtopicName -}} }

Brief explanation of the concept in one paragraph.

\subsection{Key Points}
\begin{itemize}
\item First important point about the topic
\item Second important point with details
\item Third key aspect to understand
\end{itemize}

\subsection{Code Example}
\begin{lstlisting}
{{.Sample.Import}}

// Complete, working code example that demonstrates the concept
{{.Sample.Open}}
{{.Sample.Body}}
{{.Sample.Close}}
{{.Sample.Call}}
\end{lstlisting}

\subsection{Summary}
Concise summary of the key takeaways from this topic.

CRITICAL FORMATTING RULES:
- Return ONLY LaTeX content, NO JSON wrapper
- Use \section{} for the main title and \subsection{} for subheadings
- Use \begin{itemize} \item ... \end{itemize} for bullet points
- Code goes in \begin{lstlisting}[language=...] ... \end{lstlisting}
- Use \textbf{} for bold, \textit{} for italic and \texttt{} for inline code
- Focus only on the specific subtopic: {{.SubtopicName}}
- Do NOT wrap the response in JSON or code fences`))

// RoadmapPrompt builds the prompt that asks for a chapter roadmap.
func RoadmapPrompt(topic string, level types.CourseLevel) string {
	var b strings.Builder
	_ = roadmapTemplate.Execute(&b, struct {
		Topic string
		Level types.CourseLevel
	}{strings.TrimSpace(topic), level})
	return b.String()
}

// LessonContentPrompt builds the prompt for one lesson. An empty language is
// inferred from the course description.
func LessonContentPrompt(req LessonRequest) string {
	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = InferLanguage(req.CourseDescription)
	}

	var b strings.Builder
	_ = lessonTemplate.Execute(&b, struct {
		LessonRequest
		Language string
		Sample   codeSample
	}{req, language, sampleFor(language)})
	return b.String()
}
