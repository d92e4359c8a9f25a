package rod

// Pages served to the adapter in tests.
const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
	<p>Contact us at hello@example.com</p>
</body>
</html>`

	FormHTML = `<!DOCTYPE html>
<html>
<body>
	<form id="testForm" onsubmit="event.preventDefault(); document.getElementById('out').textContent = document.getElementById('username').value;">
		<input id="username" type="text" name="username" placeholder="Username" value="old" />
		<input id="password" type="password" name="password" placeholder="Password" />
		<button id="submit" type="submit">Submit</button>
	</form>
	<div id="out"></div>
</body>
</html>`

	InteractiveHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="btn">Click Me</button>
	<div id="result"></div>
	<script>
		document.getElementById('btn').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
	</script>
</body>
</html>`

	HiddenHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="visible">Visible</button>
	<button id="none" style="display:none">Display none</button>
	<button id="invisible" style="visibility:hidden">Hidden</button>
	<button id="zero" style="width:0;height:0;padding:0;border:0;overflow:hidden">Zero</button>
	<button id="aria" aria-hidden="true">Aria hidden</button>
	<input type="hidden" name="csrf" value="x" />
	<a href="/next" role="link" aria-label="Next page" style="display:inline-block;width:24px;height:24px"></a>
	<section><h2>Section heading</h2></section>
</body>
</html>`

	NewTabHTML = `<!DOCTYPE html>
<html>
<body>
	<a id="tab" href="/basic" target="_blank">Open in new tab</a>
</body>
</html>`

	ScrollableHTML = `<!DOCTYPE html>
<html>
<body style="height: 5000px;">
	<h1 id="top">Top of Page</h1>
	<div style="margin-top: 2000px;" id="middle">Middle</div>
	<div style="margin-top: 2000px;" id="bottom">Bottom</div>
</body>
</html>`

	CoveredHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="btn">Accept</button>
	<div id="result"></div>
	<div style="position:fixed;top:0;left:0;width:100%;height:100%;z-index:10;background:rgba(0,0,0,0.3)"></div>
	<script>
		document.getElementById('btn').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Accepted!';
		});
	</script>
</body>
</html>`

	KeysHTML = `<!DOCTYPE html>
<html>
<body>
	<input id="q" type="text" placeholder="Search" autofocus />
	<div id="keys"></div>
	<script>
		document.addEventListener('keydown', function(e) {
			document.getElementById('keys').textContent += e.key + ';';
		});
	</script>
</body>
</html>`
)
