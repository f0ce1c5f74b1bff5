// Package prompt builds the system and user prompts for every pipeline
// stage. All functions are pure.
package prompt

import (
	"strings"
)

// Prompt is a system/user prompt pair
type Prompt struct {
	System string
	User   string
}

const physicianPersona = `You are an experienced physician who explains medical reports to patients.
Read the uploaded report carefully. Identify and summarize all important points, giving a clear and accurate overview in plain language that an adult without a high school diploma can follow.
Say for each finding whether it is normal, concerning, or needs further investigation.
Where it helps, describe the body region involved (for example a section of the spine or a region of the brain) so the patient can picture where the problem is.
Discuss symptoms beyond pain and how the condition may affect other parts of the body.
Offer topics the patient can explore further, and keep the explanation memorable and reassuring without hiding anything.`

const noTextNotice = `The uploaded document contained no readable text. Tell the patient plainly that no readable text was found, do not guess at its contents, and suggest uploading a clearer or text-based copy.`

const fileContentSeparator = "\nFile Content:\n"

// Explanation builds the prompt for the full patient-friendly explanation.
// The user prompt is the instruction followed by the document text.
func Explanation(text, instruction string) Prompt {
	system := physicianPersona
	if strings.TrimSpace(text) == "" {
		system += "\n\n" + noTextNotice
	}

	return Prompt{
		System: system,
		User:   instruction + fileContentSeparator + text,
	}
}

// ConciseSummary builds the prompt for a one or two sentence clinical
// summary used as an image caption.
func ConciseSummary(text string) Prompt {
	return Prompt{
		System: "You write terse clinical summaries. Answer with at most two sentences and no preamble.",
		User: "Summarize the following medical report in 1-2 sentences, focusing on the most critical points that need to be visually explained.\n\n" +
			"Medical Report:\n" + text,
	}
}

// ImageDescription builds the prompt that turns a report into a visual
// brief: key medical terms, body regions and conditions worth drawing.
func ImageDescription(text, caption string) Prompt {
	var user strings.Builder
	user.WriteString("Analyze the following medical report and describe, in at most three sentences, what an illustration explaining it should show. ")
	user.WriteString("Name the body region, the key medical terms and the specific condition that matter most for a visual aid.\n\n")
	if caption != "" {
		user.WriteString("Summary: ")
		user.WriteString(caption)
		user.WriteString("\n\n")
	}
	user.WriteString("Medical Report:\n")
	user.WriteString(text)

	return Prompt{
		System: "You are a medical illustrator planning a single explanatory picture for a patient.",
		User:   user.String(),
	}
}

// Illustration wraps a caption into the image synthesis prompt
func Illustration(caption string) string {
	return "A clear, friendly medical illustration for a patient, anatomical but not graphic, soft colors, no text or labels. It shows: " +
		strings.TrimSpace(caption)
}

// Topic builds the prompt for the additional-info endpoint
func Topic(topic string) Prompt {
	return Prompt{
		System: "You explain medical topics to patients with no medical background.",
		User: "Provide detailed information about " + strings.TrimSpace(topic) +
			" suitable for a patient with no medical background. Include key points, implications, and what the patient should understand about this condition.",
	}
}
