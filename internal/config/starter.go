package config

// Starter is the manifest written by "linecheck init".
const Starter = `# linecheck manifest
[check]
prefixes = ["CHECK"]
comment_prefixes = ["COM", "RUN"]
whitespace = "collapse"
case_sensitive = true
full_output = false

# [[fixture]]
# name = "example"
# annotation = "testdata/example.chk"
# output = "testdata/example.chk.out"

[discover]
annotations = "testdata/*.chk"
output_suffix = ".out"
`
