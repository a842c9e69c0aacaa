package config

// DefaultSources is the built-in source set used when none are configured.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name: "github-simplify",
			Kind: SourceMarkdown,
			Tag:  "GitHub-Internships",
			URLs: []string{
				"https://raw.githubusercontent.com/SimplifyJobs/Summer2026-Internships/dev/README.md",
				"https://raw.githubusercontent.com/SimplifyJobs/Summer2026-Internships/main/README.md",
			},
			Cap: 30,
		},
		{
			Name: "github-vanshb03",
			Kind: SourceMarkdown,
			Tag:  "GitHub-Internships",
			URLs: []string{
				"https://raw.githubusercontent.com/vanshb03/Summer2026-Internships/main/README.md",
				"https://raw.githubusercontent.com/vanshb03/Summer2026-Internships/dev/README.md",
			},
			Cap: 30,
		},
		{
			Name:     "glassdoor",
			Kind:     SourceDOM,
			Tag:      "Glassdoor",
			URLs:     []string{"https://www.glassdoor.com/Job/software-engineer-intern-jobs-SRCH_KO0,24.htm"},
			Cap:      30,
			Headless: true,
			Cards:    []string{"li[data-test='jobListing']", "li.react-job-listing", "article.job-card"},
			Fields: map[string][]string{
				"title":    {"a[data-test='job-title']", "a.jobLink", "h2"},
				"company":  {"span[class*='EmployerProfile_compactEmployerName']", "div[data-test='employer-short-name']", ".company"},
				"location": {"div[data-test='emp-location']", ".location"},
				"url":      {"a[data-test='job-title']@href", "a.jobLink@href", "a@href"},
				"posted":   {"div[data-test='job-age']"},
			},
		},
		{
			Name:     "indeed",
			Kind:     SourceDOM,
			Tag:      "Indeed",
			URLs:     []string{"https://www.indeed.com/jobs?q=software+engineer+intern&sort=date"},
			Cap:      30,
			Headless: true,
			Cards:    []string{"div.job_seen_beacon", "td.resultContent", "a.tapItem"},
			Fields: map[string][]string{
				"title":    {"h2.jobTitle span[title]", "h2.jobTitle", "a.jcs-JobTitle"},
				"company":  {"span[data-testid='company-name']", "span.companyName"},
				"location": {"div[data-testid='text-location']", "div.companyLocation"},
				"url":      {"h2.jobTitle a@href", "a.jcs-JobTitle@href", "a@href"},
				"posted":   {"span[data-testid='myJobsStateDate']", "span.date"},
			},
		},
		{
			Name: "linkedin",
			Kind: SourceDOM,
			Tag:  "LinkedIn",
			URLs: []string{
				"https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search?keywords=software%20engineer%20intern&location=United%20States",
			},
			Cap:   30,
			Cards: []string{"div.base-card", "li"},
			Fields: map[string][]string{
				"title":    {"h3.base-search-card__title"},
				"company":  {"h4.base-search-card__subtitle"},
				"location": {"span.job-search-card__location"},
				"url":      {"a.base-card__full-link@href", "a@href"},
				"posted":   {"time@datetime", "time"},
			},
		},
		// Single-employer boards are tagged Career-<Company>.
		{
			Name:    "stripe-careers",
			Kind:    SourceJSON,
			URLs:    []string{"https://boards-api.greenhouse.io/v1/boards/stripe/jobs"},
			Cap:     30,
			Company: "Stripe",
		},
		{
			Name:    "palantir-careers",
			Kind:    SourceJSON,
			URLs:    []string{"https://api.lever.co/v0/postings/palantir?mode=json"},
			Cap:     30,
			Company: "Palantir",
		},
	}
}
