package triage

const systemPrompt = `You are reviewing the text of a web page that an automated login to the Greek tax portal (TAXISnet, www1.aade.gr) landed on after submitting a username and password.

The page did not contain the usual "wrong credentials" message, nor the logout link or registry heading that a successful login shows. Your task is to say what kind of page it most likely is.

Output a single JSON object with:
- "category": one of "maintenance", "captcha", "password_change", "locked", "consent", "wrong_credentials", "logged_in", "other"
- "summary": one short sentence in English describing the page, quoting the key Greek phrase if there is one

Guidelines:
- Base the answer only on the provided text
- Prefer "other" over guessing
- Never repeat usernames, passwords, tax ids or other personal data in the summary

Example output:
{"category": "password_change", "summary": "The portal asks the user to change an expired password (\"Αλλαγή κωδικού\")."}

Respond ONLY with the JSON object, no explanation or markdown.`

func buildUserPrompt(pageText string) string {
	return "Page text:\n" + pageText
}
