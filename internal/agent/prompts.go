package agent

import (
	"fmt"
	"strings"
)

// Task templates. The automation service receives these as natural-language
// instructions; keep them imperative and numbered, and always ask for JSON
// where the result feeds the tracker.

const searchTaskTemplate = `Search for jobs matching this query: %q

Use this context to evaluate whether jobs are a good match:
%s

Please:
1. Go to a major job board (%s)
2. Search for the specified jobs: %q
3. Look through the first 10-15 job listings
4. For each job that seems like a good match, extract:
   - Job title
   - Company name
   - Location (remote/hybrid/onsite and city if applicable)
   - Application link
   - Salary range (if available)
   - Why it's a good match based on the candidate's profile

Return ONLY a JSON object of the form:
{"jobs": [{"title": "...", "company": "...", "location": "...", "url": "...", "salary": "...", "match_reason": "..."}]}

If no suitable jobs are found, return {"jobs": []}. Do not add commentary outside the JSON.`

func searchTask(query, aiContext string, boards []string) string {
	if len(boards) == 0 {
		boards = []string{"LinkedIn", "Indeed", "or a similar major job board"}
	}
	return fmt.Sprintf(searchTaskTemplate, query, aiContext, strings.Join(boards, ", "), query)
}

const applyTaskTemplate = `Apply to the job at this URL: %s

Use this information to fill out the application:
Name: %s
Email: %s
Phone: %s
LinkedIn: %s
GitHub: %s

Please:
1. Navigate to the job application page
2. Fill out all required fields with the provided information
3. If there's a resume upload option, note that a resume upload is needed (but don't upload)
4. For cover letters or additional questions, answer from the candidate's profile, professional but personable
5. Review the application before submitting
6. Only submit if everything looks correct
7. Take a screenshot of the confirmation page if successful
8. If the application requires creating an account, do so with the provided email
%s
Be careful and thorough - this is a real job application.
If you encounter any errors or the application cannot be completed, explain why.`

func applyTask(jobURL string, a ApplicantInfo, extra string) string {
	if extra != "" {
		extra = "\n" + extra + "\n"
	} else {
		extra = "\n"
	}
	return fmt.Sprintf(applyTaskTemplate, jobURL, a.Name, a.Email, a.Phone, a.LinkedIn, a.GitHub, extra)
}

const analyzeTaskTemplate = `Navigate to this job posting: %s

Extract and analyze:
1. Job title and company name
2. Location and work arrangement (remote/hybrid/onsite)
3. Salary range (if available)
4. Required and preferred qualifications
5. Job responsibilities
6. Application deadline (if mentioned)
7. Application process details

Return a structured summary of all this information.`

func analyzeTask(jobURL string) string {
	return fmt.Sprintf(analyzeTaskTemplate, jobURL)
}

const statusCheckTemplate = `Check job application status at: %s

Login credentials (if needed):
Email: %s
Password: %s

Please:
1. Navigate to the application portal
2. Log in if required (using provided credentials)
3. Find the applications or candidate dashboard
4. For each application found, note:
   - Job title and company
   - Application date
   - Current status (submitted, reviewing, rejected, etc.)
   - Any messages or next steps

If login fails or no applications are found, explain what you observed.`

func statusCheckTask(portalURL, email, password string) string {
	return fmt.Sprintf(statusCheckTemplate, portalURL, email, password)
}
