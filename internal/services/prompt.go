package services

import (
	"fmt"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

const systemPromptPreamble = `You are a helpful, respectful, and honest assistant. Always answer as helpfully as possible, while ensuring safety. You will be provided with a script in json format for a video containing information from visual captions and audio transcripts. Each entry in the script follows the format:

    {
    "start_time":"start_time_in_seconds",
    "end_time": "end_time_in_seconds",
    "audio_transcript": "the_transcript_from_automatic_speech_recognition_system",
    "visual_caption": "the_caption_of_the_visuals_using_computer_vision_system"
    }
    Note that the audio_transcript can sometimes be empty.

    Ensure you do not introduce any new named entities in your output and maintain the utmost factual accuracy in your responses.

    In the addition you will be provided with title of video extracted.
    `

const chatInstruction = "Provide a short and concise answer to the following user's question. " +
	"Avoid mentioning any details about the script in JSON format. " +
	"For example, a good response would be: 'Based on the analysis, " +
	"here are the most relevant/useful/aesthetic moments.' " +
	"A less effective response would be: " +
	"'Based on the provided visual caption/audio transcript, " +
	"here are the most relevant/useful/aesthetic moments. The user question is "

// generateDialog builds the two-message dialog sent to the chat model: the
// fixed system preamble and a user message embedding the instruction, the
// question, the serialized timeline, and the video title.
func generateDialog(metadata *models.VideoMetadata, timelineJSON, question string) models.ChatDialog {
	userPrompt := fmt.Sprintf(
		"%sGiven the timeline of audio and visual activities in the video below "+
			"I want to find out the following: %s"+
			"The timeline is: %s\n"+
			"The title of the video is %s",
		chatInstruction, question, timelineJSON, metadata.Title,
	)

	return models.ChatDialog{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: systemPromptPreamble},
			{Role: models.RoleUser, Content: userPrompt},
		},
	}
}
