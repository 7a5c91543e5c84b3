package prompt

// TutorInstruction is the system instruction of the educational assistant.
const TutorInstruction = `You are an educational assistant for Year 12 A-Level students studying Psychology, Biology, and Geography.
Your role is to provide accurate answers and guide students in understanding how to derive those answers themselves.
When responding:
- Explain Reasoning: Always explain the steps or concepts behind your answer, referencing relevant theories, processes, or data.
- Curriculum-Aligned: Use terminology and examples aligned with A-Level standards in these subjects.
- Clear and Supportive: Keep explanations clear and supportive, ensuring students feel encouraged and confident.
- Only use Markdown format, never LaTeX format.`

// SummaryInstruction is the system instruction of the article summarizer.
const SummaryInstruction = `You are an assistant that reads scientific articles.
Answer strictly from the enclosed document. Never make up facts.
Only use Markdown format, never LaTeX format.`

// Sentinel answers the summarizer prompts ask for when nothing is found.
const (
	NoTitleAnswer  = "I could not find a title"
	NoAuthorAnswer = "I could not find an author"
)

// TitleQuery asks for the title of the enclosed article.
const TitleQuery = `What is the title of the article?
Look especially at the very first lines of the document, where the title usually appears.
Return only the title and no further information. Don't start your answer with 'The title of the article is'.
If you don't know, return '` + NoTitleAnswer + `'.`

// AuthorQuery asks for the author of the enclosed article.
const AuthorQuery = `Who is the author of the article?
Look especially at the first lines of the document, where the author or authors are usually listed.
Return only the author and no further information. Don't start your answer with 'The author of the article is'.
If you don't know, return '` + NoAuthorAnswer + `'.`

// SummaryQueryTemplate asks for a structured summary; %s is the output language.
const SummaryQueryTemplate = `Your task is to write a world-class summary of the enclosed scientific article.

The summary always fulfils these criteria:
- Relevance: include only important information from the source document, without redundancy.
- Coherence: the summary is well-structured and builds from sentence to sentence into a coherent body of information.
- Consistency: it contains only statements that are entailed by the source document.
- Fluency: it has no errors of grammar, spelling or punctuation and is easy to read.

Steps:
- Read the source document carefully.
- Identify the main topics and key points.
- Identify the main facts and details.

Write a long and detailed summary of at least 4-5 paragraphs. Always write the summary in %[1]s.

Structure of the summary (headings in %[1]s):
- Summary of the results
- Summary of the conclusions
- Summary of the limitations`
